package ladder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixed(name string, items []int, err error) Step[int] {
	return Step[int]{Name: name, Fill: func(context.Context, []int, int) ([]int, error) {
		return items, err
	}}
}

func TestRun(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		want      int
		steps     []Step[int]
		wantItems []int
		wantSteps []string
	}{
		{
			name:      "first step satisfies",
			want:      2,
			steps:     []Step[int]{fixed("a", []int{1, 2, 3}, nil), fixed("b", []int{9}, nil)},
			wantItems: []int{1, 2},
			wantSteps: []string{"a"},
		},
		{
			name:      "falls through on error and shortfall",
			want:      3,
			steps:     []Step[int]{fixed("a", nil, boom), fixed("b", []int{1}, nil), fixed("c", []int{2, 3, 4}, nil)},
			wantItems: []int{1, 2, 3},
			wantSteps: []string{"a", "b", "c"},
		},
		{
			name:      "partial items kept alongside error",
			want:      2,
			steps:     []Step[int]{fixed("a", []int{7}, boom), fixed("b", []int{8}, nil)},
			wantItems: []int{7, 8},
			wantSteps: []string{"a", "b"},
		},
		{
			name:      "exhausted",
			want:      3,
			steps:     []Step[int]{fixed("a", []int{1}, nil)},
			wantItems: []int{1},
			wantSteps: []string{"a"},
		},
		{
			name:      "zero wanted",
			want:      0,
			steps:     []Step[int]{fixed("a", []int{1}, nil)},
			wantSteps: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Run(context.Background(), tt.want, tt.steps, nil)
			assert.Equal(t, tt.wantItems, res.Items)
			var names []string
			for _, o := range res.Trace {
				names = append(names, o.Step)
			}
			assert.Equal(t, tt.wantSteps, names)
		})
	}
}

func TestRun_StepSeesCollectedItems(t *testing.T) {
	var seen []int
	var seenNeed int
	steps := []Step[int]{
		fixed("a", []int{1, 2}, nil),
		{Name: "b", Fill: func(_ context.Context, have []int, need int) ([]int, error) {
			seen = append([]int(nil), have...)
			seenNeed = need
			return []int{3, 4, 5}, nil
		}},
	}
	res := Run(context.Background(), 5, steps, nil)
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, 3, seenNeed)
	assert.True(t, res.Enough(5))
	assert.Equal(t, 3, res.Trace[1].Added)
}
