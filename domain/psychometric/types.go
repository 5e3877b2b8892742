package psychometric

import (
	"fmt"
	"strings"
)

// ItemKind identifies the question form an item is answered through
type ItemKind string

const (
	KindSingle    ItemKind = "single"
	KindScale     ItemKind = "scale"
	KindDropdown  ItemKind = "dropdown"
	KindMatrix    ItemKind = "matrix"
	KindMatrixRow ItemKind = "matrix_row"
)

// Bias shifts an item's answers toward the low or high end of its options
type Bias string

const (
	BiasLeft   Bias = "left"
	BiasCenter Bias = "center"
	BiasRight  Bias = "right"
)

// ParseBias maps free-form configuration onto a Bias, defaulting to center
func ParseBias(s string) Bias {
	switch Bias(strings.ToLower(strings.TrimSpace(s))) {
	case BiasLeft:
		return BiasLeft
	case BiasRight:
		return BiasRight
	default:
		return BiasCenter
	}
}

// Shift returns the latent-scale offset for the bias in standard deviations
func (b Bias) Shift() float64 {
	switch b {
	case BiasLeft:
		return -0.5
	case BiasRight:
		return 0.5
	default:
		return 0.0
	}
}

// ItemSpec is the caller-side description of one plan-covered item
type ItemSpec struct {
	QuestionIndex int
	Kind          ItemKind
	OptionCount   int
	Bias          Bias
	RowIndex      *int // set for matrix rows only
}

// Item is one observed indicator of the respondent's latent trait
type Item struct {
	Kind          ItemKind `json:"kind"`
	QuestionIndex int      `json:"question_index"`
	RowIndex      *int     `json:"row_index,omitempty"`
	OptionCount   int      `json:"option_count"`
	Bias          Bias     `json:"bias"`
}

// Key returns the plan lookup key for the item
func (it Item) Key() string {
	return PlanKey(it.QuestionIndex, it.RowIndex)
}

// PlanKey derives the choice key for a question or a matrix row
func PlanKey(questionIndex int, rowIndex *int) string {
	if rowIndex != nil {
		return fmt.Sprintf("matrix:%d:%d", questionIndex, *rowIndex)
	}
	return fmt.Sprintf("q:%d", questionIndex)
}

// Plan is a respondent's precomputed answer set for plan-covered items.
// It is immutable once built
type Plan struct {
	Items       []Item         `json:"items"`
	Theta       float64        `json:"theta"`
	SigmaE      float64        `json:"sigma_e"`
	TargetAlpha float64        `json:"target_alpha"`
	choices     map[string]int // item key -> option index
}

// NewPlan assembles a plan from already-drawn choices
func NewPlan(items []Item, theta, sigmaE, targetAlpha float64, choices map[string]int) *Plan {
	owned := make(map[string]int, len(choices))
	for k, v := range choices {
		owned[k] = v
	}
	return &Plan{
		Items:       items,
		Theta:       theta,
		SigmaE:      sigmaE,
		TargetAlpha: targetAlpha,
		choices:     owned,
	}
}

// Choice returns the planned option index for a question (or matrix row).
// ok is false for items outside the plan
func (p *Plan) Choice(questionIndex int, rowIndex *int) (int, bool) {
	if p == nil {
		return 0, false
	}
	idx, ok := p.choices[PlanKey(questionIndex, rowIndex)]
	return idx, ok
}

// Covers reports whether the plan holds an answer for the question or row
func (p *Plan) Covers(questionIndex int, rowIndex *int) bool {
	_, ok := p.Choice(questionIndex, rowIndex)
	return ok
}

// Rho is the mean inter-item correlation implied by SigmaE: 1/(1+sigma_e^2)
func (p *Plan) Rho() float64 {
	return 1 / (1 + p.SigmaE*p.SigmaE)
}

// Len returns the number of items in the plan
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

// Row is a helper for building matrix-row item specs
func Row(i int) *int {
	return &i
}
