package compiler

import (
	"fmt"
	"strings"

	"github.com/starford/bootplan/internal/apperr"
	"github.com/starford/bootplan/internal/models"
)

// sortByInheritance orders instructions so every base precedes the models
// derived from it (Kahn's algorithm). Ready instructions keep their
// working-set order. Bases outside the set are treated as already satisfied.
func sortByInheritance(insts []models.ModelInstruction) ([]models.ModelInstruction, error) {
	index := make(map[string]int, len(insts))
	for i, inst := range insts {
		index[inst.Name] = i
	}

	inDegree := make([]int, len(insts))
	dependents := make([][]int, len(insts))
	for i, inst := range insts {
		j, ok := index[inst.Definition.Base()]
		if !ok {
			continue
		}
		inDegree[i]++
		dependents[j] = append(dependents[j], i)
	}

	out := make([]models.ModelInstruction, 0, len(insts))
	done := make([]bool, len(insts))
	for len(out) < len(insts) {
		progressed := false
		for i := range insts {
			if done[i] || inDegree[i] != 0 {
				continue
			}
			done[i] = true
			progressed = true
			out = append(out, insts[i])
			for _, d := range dependents[i] {
				inDegree[d]--
			}
		}
		if !progressed {
			var stuck []string
			for i, inst := range insts {
				if !done[i] {
					stuck = append(stuck, inst.Name)
				}
			}
			return nil, fmt.Errorf("%w: %s", apperr.ErrCyclicInheritance, strings.Join(stuck, ", "))
		}
	}
	return out, nil
}
