// Package neural provides the fixed-topology feed-forward networks that
// drive evolved snakes.
package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidShape is returned for layer size lists that cannot form a network.
	ErrInvalidShape = errors.New("neural: invalid network shape")
	// ErrShapeMismatch is returned when serialized weights do not fit the requested shape.
	ErrShapeMismatch = errors.New("neural: weights do not match network shape")
)

// Layer is one dense layer: out = sigmoid(W·in + B).
type Layer struct {
	W *mat.Dense    // out × in
	B *mat.VecDense // out
}

// In returns the input width of the layer.
func (l Layer) In() int {
	_, c := l.W.Dims()
	return c
}

// Out returns the output width of the layer.
func (l Layer) Out() int {
	return l.B.Len()
}

// Network is an ordered stack of dense sigmoid layers.
type Network struct {
	Layers []Layer
}

// ValidateShape checks that shape lists at least an input and an output
// size and that every size is positive.
func ValidateShape(shape []int) error {
	if len(shape) < 2 {
		return fmt.Errorf("%w: need at least 2 sizes, got %d", ErrInvalidShape, len(shape))
	}
	for i, n := range shape {
		if n <= 0 {
			return fmt.Errorf("%w: size %d at index %d", ErrInvalidShape, n, i)
		}
	}
	return nil
}

// New builds a network with every weight and bias drawn uniformly from [-1, 1].
// Parameters are drawn layer by layer, weights row-major before biases.
func New(shape []int, rng *rand.Rand) (*Network, error) {
	if err := ValidateShape(shape); err != nil {
		return nil, err
	}
	nn := zeroed(shape)
	for _, l := range nn.Layers {
		r, c := l.W.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				l.W.Set(i, j, rng.Float64()*2-1)
			}
		}
		for i := 0; i < l.B.Len(); i++ {
			l.B.SetVec(i, rng.Float64()*2-1)
		}
	}
	return nn, nil
}

// FromParams builds a network of the given shape from a flat parameter
// slice in Params order.
func FromParams(shape []int, params []float64) (*Network, error) {
	if err := ValidateShape(shape); err != nil {
		return nil, err
	}
	nn := zeroed(shape)
	if err := nn.SetParams(params); err != nil {
		return nil, err
	}
	return nn, nil
}

// zeroed allocates an all-zero network. shape must be valid.
func zeroed(shape []int) *Network {
	nn := &Network{Layers: make([]Layer, len(shape)-1)}
	for i := range nn.Layers {
		nn.Layers[i] = Layer{
			W: mat.NewDense(shape[i+1], shape[i], nil),
			B: mat.NewVecDense(shape[i+1], nil),
		}
	}
	return nn
}

// Shape returns the layer sizes, input first.
func (nn *Network) Shape() []int {
	if len(nn.Layers) == 0 {
		return nil
	}
	shape := make([]int, 0, len(nn.Layers)+1)
	shape = append(shape, nn.Layers[0].In())
	for _, l := range nn.Layers {
		shape = append(shape, l.Out())
	}
	return shape
}

// NumInputs returns the width of the input layer.
func (nn *Network) NumInputs() int {
	if len(nn.Layers) == 0 {
		return 0
	}
	return nn.Layers[0].In()
}

// NumOutputs returns the width of the output layer.
func (nn *Network) NumOutputs() int {
	if len(nn.Layers) == 0 {
		return 0
	}
	return nn.Layers[len(nn.Layers)-1].Out()
}

// NumParams returns the total number of weights and biases.
func (nn *Network) NumParams() int {
	n := 0
	for _, l := range nn.Layers {
		r, c := l.W.Dims()
		n += r*c + r
	}
	return n
}

// Forward runs inference. len(input) must equal NumInputs.
func (nn *Network) Forward(input []float64) []float64 {
	x := mat.NewVecDense(len(input), append([]float64(nil), input...))
	for _, l := range nn.Layers {
		out := mat.NewVecDense(l.Out(), nil)
		out.MulVec(l.W, x)
		out.AddVec(out, l.B)
		for i := 0; i < out.Len(); i++ {
			out.SetVec(i, sigmoid(out.AtVec(i)))
		}
		x = out
	}
	return x.RawVector().Data
}

// Mutate scales every weight and bias by an independent factor drawn
// uniformly from [1-percent/100, 1+percent/100]. Parameters that are exactly
// zero stay zero.
func (nn *Network) Mutate(rng *rand.Rand, percent float64) {
	lo := 1 - percent/100
	span := 2 * percent / 100
	factor := func() float64 { return lo + rng.Float64()*span }

	for _, l := range nn.Layers {
		r, c := l.W.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				l.W.Set(i, j, l.W.At(i, j)*factor())
			}
		}
		for i := 0; i < l.B.Len(); i++ {
			l.B.SetVec(i, l.B.AtVec(i)*factor())
		}
	}
}

// Clone returns a deep copy of the network.
func (nn *Network) Clone() *Network {
	c := &Network{Layers: make([]Layer, len(nn.Layers))}
	for i, l := range nn.Layers {
		c.Layers[i] = Layer{
			W: mat.DenseCopyOf(l.W),
			B: mat.VecDenseCopyOf(l.B),
		}
	}
	return c
}

// Params returns every parameter in serialization order: per layer, the
// weights row-major followed by the biases.
func (nn *Network) Params() []float64 {
	out := make([]float64, 0, nn.NumParams())
	for _, l := range nn.Layers {
		r, c := l.W.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out = append(out, l.W.At(i, j))
			}
		}
		for i := 0; i < l.B.Len(); i++ {
			out = append(out, l.B.AtVec(i))
		}
	}
	return out
}

// SetParams overwrites every parameter from p, in Params order.
func (nn *Network) SetParams(p []float64) error {
	if len(p) != nn.NumParams() {
		return fmt.Errorf("%w: got %d params, want %d", ErrShapeMismatch, len(p), nn.NumParams())
	}
	k := 0
	for _, l := range nn.Layers {
		r, c := l.W.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				l.W.Set(i, j, p[k])
				k++
			}
		}
		for i := 0; i < l.B.Len(); i++ {
			l.B.SetVec(i, p[k])
			k++
		}
	}
	return nil
}

// Equal reports whether both networks have the same shape and bit-identical
// parameters.
func (nn *Network) Equal(other *Network) bool {
	if other == nil || len(nn.Layers) != len(other.Layers) {
		return false
	}
	a, b := nn.Shape(), other.Shape()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	pa, pb := nn.Params(), other.Params()
	for i := range pa {
		if math.Float64bits(pa[i]) != math.Float64bits(pb[i]) {
			return false
		}
	}
	return true
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
