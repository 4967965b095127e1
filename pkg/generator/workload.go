/*
 * MIT License
 *
 * Copyright (c) 2023 EASL and the vHive community
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package generator

import (
	"fmt"
	"math/rand"

	log "github.com/sirupsen/logrus"

	"stressor/pkg/common"
)

// WorkloadGenerator produces reproducible workloads. Keys and values are
// drawn from two dedicated random streams so that changing the payload
// dimension does not perturb the key sequence.
type WorkloadGenerator struct {
	keyRand   *rand.Rand
	valueRand *rand.Rand

	seed         int64
	dimension    int
	distribution string
}

func NewWorkloadGenerator(seed int64, dimension int, distribution string) *WorkloadGenerator {
	return &WorkloadGenerator{
		keyRand:      rand.New(rand.NewSource(seed)),
		valueRand:    rand.New(rand.NewSource(seed)),
		seed:         seed,
		dimension:    dimension,
		distribution: distribution,
	}
}

// Generate materializes exactly size items. Two generators constructed with
// identical parameters produce identical sequences. Allocation panics during
// bulk generation are reported as a resource exhaustion error instead of
// taking the process down.
func (g *WorkloadGenerator) Generate(size int) (workload *common.Workload, err error) {
	if size <= 0 {
		return nil, &common.ConfigurationError{
			Parameter: "WorkloadSize",
			Message:   fmt.Sprintf("must be positive, got %d", size),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Workload generation aborted: %v", r)
			workload = nil
			err = fmt.Errorf("workload generation: %w: %v", common.ErrResourceExhausted, r)
		}
	}()

	nextKey, err := g.keySequence(size)
	if err != nil {
		return nil, err
	}

	items := make([]common.WorkloadItem, size)
	for i := 0; i < size; i++ {
		values := make([]float64, g.dimension)
		for j := range values {
			values[j] = g.valueRand.Float64()
		}

		items[i] = common.WorkloadItem{
			Index:  int64(i),
			Key:    nextKey(),
			Values: values,
		}
	}

	return &common.Workload{
		Seed:         g.seed,
		DeclaredSize: size,
		Items:        items,
	}, nil
}

func (g *WorkloadGenerator) keySequence(size int) (func() uint64, error) {
	switch g.distribution {
	case common.DistributionUniform:
		return func() uint64 {
			return g.keyRand.Uint64()
		}, nil
	case common.DistributionZipfian:
		// Skew towards a hot subset of the keyspace, twice the workload
		// size so collisions stay likely but not degenerate.
		zipf := rand.NewZipf(g.keyRand, 1.07, 1.0, uint64(size)*2)
		return zipf.Uint64, nil
	case common.DistributionSequential:
		var next uint64
		return func() uint64 {
			next++
			return next - 1
		}, nil
	default:
		return nil, &common.ConfigurationError{
			Parameter: "KeyDistribution",
			Message:   fmt.Sprintf("unsupported distribution %q", g.distribution),
		}
	}
}
