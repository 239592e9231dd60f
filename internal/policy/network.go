package policy

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"sortforge/internal/model"
)

// MLP is a small fully-connected network with tanh hidden layers and a
// linear output layer. Forward and backward passes are written out by hand;
// the action space is five-wide, so there is nothing a tensor library
// would buy here.
type MLP struct {
	Sizes   []int         `json:"sizes"`
	Weights [][][]float64 `json:"weights"` // [layer][out][in]
	Biases  [][]float64   `json:"biases"`  // [layer][out]
}

func NewMLP(rng *rand.Rand, sizes []int) (*MLP, error) {
	if len(sizes) < 2 {
		return nil, errors.New("network needs an input and an output size")
	}
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("invalid layer size %d", s)
		}
	}

	m := &MLP{Sizes: append([]int(nil), sizes...)}
	m.Weights = make([][][]float64, len(sizes)-1)
	m.Biases = make([][]float64, len(sizes)-1)
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := 1.0 / math.Sqrt(float64(in))
		m.Weights[l] = make([][]float64, out)
		m.Biases[l] = make([]float64, out)
		for o := 0; o < out; o++ {
			row := make([]float64, in)
			for i := range row {
				row[i] = rng.NormFloat64() * scale
			}
			m.Weights[l][o] = row
		}
	}
	return m, nil
}

// forwardCache keeps per-layer activations (input first, output last) and
// the dropout masks used on hidden layers, for the matching backward pass.
type forwardCache struct {
	activations [][]float64
	masks       [][]float64
}

// Forward runs the network. With dropout > 0 and a non-nil rng, inverted
// dropout is applied to hidden activations and recorded for backprop;
// inference passes use dropout = 0.
func (m *MLP) Forward(input []float64, dropout float64, rng *rand.Rand) ([]float64, *forwardCache) {
	cache := &forwardCache{
		activations: make([][]float64, 0, len(m.Sizes)),
		masks:       make([][]float64, len(m.Sizes)-1),
	}
	current := append([]float64(nil), input...)
	cache.activations = append(cache.activations, current)

	last := len(m.Weights) - 1
	for l, layer := range m.Weights {
		next := make([]float64, len(layer))
		for o, row := range layer {
			sum := m.Biases[l][o]
			for i, w := range row {
				sum += w * current[i]
			}
			if l < last {
				sum = math.Tanh(sum)
			}
			next[o] = sum
		}
		if l < last && dropout > 0 && rng != nil {
			mask := make([]float64, len(next))
			keep := 1.0 - dropout
			for i := range next {
				if rng.Float64() < keep {
					mask[i] = 1.0 / keep
				}
				next[i] *= mask[i]
			}
			cache.masks[l] = mask
		}
		current = next
		cache.activations = append(cache.activations, current)
	}
	return current, cache
}

// Grads mirrors the network shape and accumulates parameter gradients.
type Grads struct {
	Weights [][][]float64
	Biases  [][]float64
}

func NewGrads(m *MLP) *Grads {
	g := &Grads{
		Weights: make([][][]float64, len(m.Weights)),
		Biases:  make([][]float64, len(m.Biases)),
	}
	for l := range m.Weights {
		g.Weights[l] = make([][]float64, len(m.Weights[l]))
		for o := range m.Weights[l] {
			g.Weights[l][o] = make([]float64, len(m.Weights[l][o]))
		}
		g.Biases[l] = make([]float64, len(m.Biases[l]))
	}
	return g
}

// Backward accumulates into g the gradient of a scalar objective whose
// derivative with respect to the network output is dOut, as recorded by
// the given forward cache.
func (m *MLP) Backward(cache *forwardCache, dOut []float64, g *Grads) {
	delta := append([]float64(nil), dOut...)
	for l := len(m.Weights) - 1; l >= 0; l-- {
		in := cache.activations[l]
		out := cache.activations[l+1]

		if l < len(m.Weights)-1 {
			// Hidden layer: back through tanh (and its dropout mask).
			for o := range delta {
				a := out[o]
				scale := 1.0
				if cache.masks[l] != nil {
					scale = cache.masks[l][o]
					if scale != 0 {
						// out was scaled by mask; recover the tanh value.
						a = out[o] / scale
					}
				}
				delta[o] *= scale * (1 - a*a)
			}
		}

		for o, d := range delta {
			g.Biases[l][o] += d
			row := g.Weights[l][o]
			for i, x := range in {
				row[i] += d * x
			}
		}

		if l > 0 {
			prev := make([]float64, len(in))
			for o, d := range delta {
				for i, w := range m.Weights[l][o] {
					prev[i] += d * w
				}
			}
			delta = prev
		}
	}
}

// GlobalNorm is the L2 norm over every accumulated gradient entry.
func (g *Grads) GlobalNorm() float64 {
	sum := 0.0
	for l := range g.Weights {
		for o := range g.Weights[l] {
			for _, v := range g.Weights[l][o] {
				sum += v * v
			}
		}
		for _, v := range g.Biases[l] {
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}

// ClipGlobalNorm rescales the gradient in place when its global norm
// exceeds maxNorm. Non-positive maxNorm disables clipping.
func (g *Grads) ClipGlobalNorm(maxNorm float64) {
	if maxNorm <= 0 {
		return
	}
	norm := g.GlobalNorm()
	if norm <= maxNorm {
		return
	}
	scale := maxNorm / norm
	for l := range g.Weights {
		for o := range g.Weights[l] {
			for i := range g.Weights[l][o] {
				g.Weights[l][o][i] *= scale
			}
		}
		for i := range g.Biases[l] {
			g.Biases[l][i] *= scale
		}
	}
}

// Apply moves the parameters along the gradient scaled by step. Positive
// step ascends the objective, negative descends.
func (m *MLP) Apply(g *Grads, step float64) {
	for l := range m.Weights {
		for o := range m.Weights[l] {
			for i := range m.Weights[l][o] {
				m.Weights[l][o][i] += step * g.Weights[l][o][i]
			}
		}
		for o := range m.Biases[l] {
			m.Biases[l][o] += step * g.Biases[l][o]
		}
	}
}

// ToParams snapshots the network into the persistent record form.
func (m *MLP) ToParams() model.NetworkParams {
	out := model.NetworkParams{Sizes: append([]int(nil), m.Sizes...)}
	out.Weights = make([][][]float64, len(m.Weights))
	out.Biases = make([][]float64, len(m.Biases))
	for l := range m.Weights {
		out.Weights[l] = make([][]float64, len(m.Weights[l]))
		for o := range m.Weights[l] {
			out.Weights[l][o] = append([]float64(nil), m.Weights[l][o]...)
		}
		out.Biases[l] = append([]float64(nil), m.Biases[l]...)
	}
	return out
}

// FromParams restores a network from its persistent record form.
func FromParams(p model.NetworkParams) (*MLP, error) {
	if len(p.Sizes) < 2 || len(p.Weights) != len(p.Sizes)-1 || len(p.Biases) != len(p.Sizes)-1 {
		return nil, errors.New("malformed network parameters")
	}
	m := &MLP{Sizes: append([]int(nil), p.Sizes...)}
	m.Weights = make([][][]float64, len(p.Weights))
	m.Biases = make([][]float64, len(p.Biases))
	for l := range p.Weights {
		if len(p.Weights[l]) != p.Sizes[l+1] || len(p.Biases[l]) != p.Sizes[l+1] {
			return nil, fmt.Errorf("layer %d shape mismatch", l)
		}
		m.Weights[l] = make([][]float64, len(p.Weights[l]))
		for o := range p.Weights[l] {
			if len(p.Weights[l][o]) != p.Sizes[l] {
				return nil, fmt.Errorf("layer %d row %d width mismatch", l, o)
			}
			m.Weights[l][o] = append([]float64(nil), p.Weights[l][o]...)
		}
		m.Biases[l] = append([]float64(nil), p.Biases[l]...)
	}
	return m, nil
}

// Softmax converts logits into a categorical distribution, shifted by the
// max logit for numeric stability.
func Softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		e := math.Exp(v - max)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
