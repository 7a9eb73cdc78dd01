package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Booster evaluates a gradient-boosted tree ensemble saved in XGBoost's JSON model format.
// Only the gbtree booster is supported.
type Booster struct {
	trees      []boosterTree
	treeClass  []int
	groups     int
	baseMargin float64
	objective  string
	numFeature int
}

type boosterFile struct {
	Learner struct {
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees    []boosterTree `json:"trees"`
				TreeInfo []int         `json:"tree_info"`
			} `json:"model"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type boosterTree struct {
	LeftChildren    []int      `json:"left_children"`
	RightChildren   []int      `json:"right_children"`
	SplitIndices    []int      `json:"split_indices"`
	SplitConditions []float64  `json:"split_conditions"`
	DefaultLeft     []flexBool `json:"default_left"`
}

// flexBool accepts both the boolean and the 0/1 encodings used across format versions.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", string(data))
	}
	return nil
}

// DecodeBooster parses an XGBoost JSON model.
func DecodeBooster(data []byte) (*Booster, error) {
	var f boosterFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse booster: %w", err)
	}
	l := f.Learner
	if name := l.GradientBooster.Name; name != "" && name != "gbtree" {
		return nil, fmt.Errorf("unsupported booster %q", name)
	}
	trees := l.GradientBooster.Model.Trees
	if len(trees) == 0 {
		return nil, fmt.Errorf("booster has no trees")
	}

	groups := 1
	if v := l.LearnerModelParam.NumClass; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("num_class %q: %w", v, err)
		}
		if n > 1 {
			groups = n
		}
	}

	treeClass := l.GradientBooster.Model.TreeInfo
	if len(treeClass) == 0 {
		treeClass = make([]int, len(trees))
		for i := range treeClass {
			treeClass[i] = i % groups
		}
	}
	if len(treeClass) != len(trees) {
		return nil, fmt.Errorf("tree_info has %d entries for %d trees", len(treeClass), len(trees))
	}

	for i, t := range trees {
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		if treeClass[i] < 0 || treeClass[i] >= groups {
			return nil, fmt.Errorf("tree %d assigned to group %d of %d", i, treeClass[i], groups)
		}
	}

	baseScore := 0.5
	if v := l.LearnerModelParam.BaseScore; v != "" {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("base_score %q: %w", v, err)
		}
		baseScore = s
	}

	numFeature := 0
	if v := l.LearnerModelParam.NumFeature; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("num_feature %q: %w", v, err)
		}
		numFeature = n
	}

	objective := l.Objective.Name
	baseMargin := baseScore
	if isLogistic(objective) {
		baseMargin = logit(baseScore)
	}

	return &Booster{
		trees:      trees,
		treeClass:  treeClass,
		groups:     groups,
		baseMargin: baseMargin,
		objective:  objective,
		numFeature: numFeature,
	}, nil
}

func (t boosterTree) validate() error {
	n := len(t.LeftChildren)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.RightChildren) != n || len(t.SplitIndices) != n || len(t.SplitConditions) != n {
		return fmt.Errorf("node arrays have inconsistent lengths")
	}
	if len(t.DefaultLeft) != 0 && len(t.DefaultLeft) != n {
		return fmt.Errorf("default_left has %d entries for %d nodes", len(t.DefaultLeft), n)
	}
	for i := 0; i < n; i++ {
		l, r := t.LeftChildren[i], t.RightChildren[i]
		if l == -1 {
			continue
		}
		if l <= 0 || l >= n || r <= 0 || r >= n {
			return fmt.Errorf("node %d has children out of range", i)
		}
	}
	return nil
}

// leaf walks the tree and returns the leaf value. XGBoost stores leaf values in
// split_conditions.
func (t boosterTree) leaf(x []float64) (float64, error) {
	node := 0
	for steps := 0; steps <= len(t.LeftChildren); steps++ {
		left := t.LeftChildren[node]
		if left == -1 {
			return t.SplitConditions[node], nil
		}
		idx := t.SplitIndices[node]
		if idx < 0 || idx >= len(x) {
			return 0, fmt.Errorf("split on feature %d outside input of %d", idx, len(x))
		}
		v := x[idx]
		switch {
		case math.IsNaN(v):
			if len(t.DefaultLeft) > 0 && bool(t.DefaultLeft[node]) {
				node = left
			} else {
				node = t.RightChildren[node]
			}
		case v < t.SplitConditions[node]:
			node = left
		default:
			node = t.RightChildren[node]
		}
	}
	return 0, fmt.Errorf("tree walk did not reach a leaf")
}

// Margins returns the raw per-group scores before the objective transform.
func (b *Booster) Margins(x []float64) ([]float64, error) {
	if b.numFeature > 0 && len(x) != b.numFeature {
		return nil, fmt.Errorf("booster expects %d features, got %d", b.numFeature, len(x))
	}
	margins := make([]float64, b.groups)
	for i := range margins {
		margins[i] = b.baseMargin
	}
	for i, t := range b.trees {
		v, err := t.leaf(x)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		margins[b.treeClass[i]] += v
	}
	return margins, nil
}

// Predict returns the booster's native prediction output for its objective:
// a softmax for multi-class objectives, [1-p, p] for logistic ones, raw margins otherwise.
func (b *Booster) Predict(x []float64) ([]float64, error) {
	m, err := b.Margins(x)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(b.objective, "multi:"):
		return softmax(m), nil
	case isLogistic(b.objective):
		p := sigmoid(m[0])
		return []float64{1 - p, p}, nil
	default:
		return m, nil
	}
}

// Classes is the width of Predict's output.
func (b *Booster) Classes() int {
	if b.groups > 1 {
		return b.groups
	}
	if isLogistic(b.objective) {
		return 2
	}
	return 1
}

// Objective is the training objective name.
func (b *Booster) Objective() string {
	return b.objective
}

func isLogistic(objective string) bool {
	switch objective {
	case "binary:logistic", "reg:logistic":
		return true
	}
	return false
}

func logit(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return math.Log(p / (1 - p))
}
