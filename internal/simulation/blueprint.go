package simulation

import (
	"encoding/json"
	"fmt"
	"os"

	domain "surveygen/domain/psychometric"
	"surveygen/domain/responsestats"
	"surveygen/internal/errors"
	"surveygen/internal/tendency"
)

// defaultSelectPercent is the per-option selection chance of a multiple
// choice item without weights
const defaultSelectPercent = 50.0

// Item describes one question of a simulated form
type Item struct {
	Question    int                        `json:"question"`
	Type        responsestats.QuestionType `json:"type"`
	Title       string                     `json:"title,omitempty"`
	OptionCount int                        `json:"option_count,omitempty"`
	MatrixRows  int                        `json:"matrix_rows,omitempty"`

	// Weights are relative option weights, or for multiple choice items the
	// selection chance of each option in percent
	Weights   []float64          `json:"weights,omitempty"`
	Dimension tendency.Dimension `json:"dimension,omitempty"`
	Reverse   bool               `json:"reverse,omitempty"`

	// Psycho items are answered from the respondent's latent-trait plan
	Psycho bool        `json:"psycho,omitempty"`
	Bias   domain.Bias `json:"bias,omitempty"`

	TextAnswers []string `json:"text_answers,omitempty"`
}

// Blueprint is the form every respondent of a run fills in
type Blueprint struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Items []Item `json:"items"`
}

// LoadBlueprint reads a JSON blueprint from disk
func LoadBlueprint(path string) (*Blueprint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read blueprint %s", path)
	}
	var bp Blueprint
	if err := json.Unmarshal(raw, &bp); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("blueprint %s: %w", path, err))
	}
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	return &bp, nil
}

// LikertBlueprint builds k scale items sharing one dimension, all answered
// through the latent-trait plan
func LikertBlueprint(name string, k, optionCount int) Blueprint {
	bp := Blueprint{Name: name, URL: "simulated://" + name, Title: name}
	for i := 1; i <= k; i++ {
		bp.Items = append(bp.Items, Item{
			Question:    i,
			Type:        responsestats.TypeScale,
			Title:       fmt.Sprintf("Item %d", i),
			OptionCount: optionCount,
			Dimension:   "satisfaction",
			Psycho:      true,
			Bias:        domain.BiasCenter,
		})
	}
	return bp
}

// Validate checks the blueprint is answerable
func (b Blueprint) Validate() error {
	if len(b.Items) == 0 {
		return errors.InvalidInput("blueprint has no items")
	}
	seen := make(map[int]bool, len(b.Items))
	for _, it := range b.Items {
		if it.Question <= 0 {
			return errors.InvalidInput(fmt.Sprintf("question number must be positive, got %d", it.Question))
		}
		if seen[it.Question] {
			return errors.InvalidInput(fmt.Sprintf("question %d appears twice", it.Question))
		}
		seen[it.Question] = true

		switch it.Type {
		case responsestats.TypeText:
			continue
		case responsestats.TypeMatrix:
			if it.MatrixRows <= 0 {
				return errors.InvalidInput(fmt.Sprintf("matrix question %d needs rows", it.Question))
			}
		case responsestats.TypeSingle, responsestats.TypeMultiple, responsestats.TypeScale,
			responsestats.TypeScore, responsestats.TypeDropdown, responsestats.TypeSlider:
		default:
			return errors.InvalidInput(fmt.Sprintf("question %d has unknown type %q", it.Question, it.Type))
		}
		if it.OptionCount <= 0 {
			return errors.InvalidInput(fmt.Sprintf("question %d needs a positive option count", it.Question))
		}
		if it.Psycho && !planAnswerable(it.Type) {
			return errors.InvalidInput(fmt.Sprintf("question %d of type %s cannot be plan-covered", it.Question, it.Type))
		}
		if it.Psycho && it.OptionCount < 2 {
			return errors.InvalidInput(fmt.Sprintf("plan-covered question %d needs at least 2 options, got %d", it.Question, it.OptionCount))
		}
	}
	return nil
}

// PlanSpecs lists the plan-covered items in column order. Matrix items
// contribute one entry per row
func (b Blueprint) PlanSpecs() []domain.ItemSpec {
	var specs []domain.ItemSpec
	for _, it := range b.Items {
		if !it.Psycho {
			continue
		}
		if it.Type == responsestats.TypeMatrix {
			for row := 0; row < it.MatrixRows; row++ {
				specs = append(specs, domain.ItemSpec{
					QuestionIndex: it.Question,
					Kind:          domain.KindMatrix,
					OptionCount:   it.OptionCount,
					Bias:          it.Bias,
					RowIndex:      domain.Row(row),
				})
			}
			continue
		}
		specs = append(specs, domain.ItemSpec{
			QuestionIndex: it.Question,
			Kind:          planKind(it.Type),
			OptionCount:   it.OptionCount,
			Bias:          it.Bias,
		})
	}
	return specs
}

func planAnswerable(t responsestats.QuestionType) bool {
	switch t {
	case responsestats.TypeSingle, responsestats.TypeScale, responsestats.TypeScore,
		responsestats.TypeDropdown, responsestats.TypeMatrix:
		return true
	default:
		return false
	}
}

func planKind(t responsestats.QuestionType) domain.ItemKind {
	switch t {
	case responsestats.TypeScale, responsestats.TypeScore:
		return domain.KindScale
	case responsestats.TypeDropdown:
		return domain.KindDropdown
	case responsestats.TypeMatrix:
		return domain.KindMatrix
	default:
		return domain.KindSingle
	}
}
