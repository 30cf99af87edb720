package embedding

const (
	// PoolingCLS takes the first token's hidden state (BGE models).
	PoolingCLS = "cls"
	// PoolingMean averages hidden states over non-padding tokens.
	PoolingMean = "mean"
	// PoolingNone expects the model to output a [1, dim] sentence embedding.
	PoolingNone = "none"
)

// ONNXConfig configures the ONNX encoder.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	OutputName  string
	Pooling     string
	Dimensions  int
	MaxTokens   int
}

func (c *ONNXConfig) applyDefaults() {
	if c.Dimensions <= 0 {
		c.Dimensions = 384
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 256
	}
	if c.Pooling == "" {
		c.Pooling = PoolingCLS
	}
	if c.OutputName == "" {
		c.OutputName = "last_hidden_state"
	}
}

// pool reduces model output to a single dim-sized vector. For token-level
// output, hidden is laid out as [tokens][dim].
func pool(hidden []float32, mask []int64, dim int, pooling string) []float32 {
	out := make([]float32, dim)
	switch pooling {
	case PoolingMean:
		var n float32
		for t, m := range mask {
			if m == 0 || (t+1)*dim > len(hidden) {
				continue
			}
			row := hidden[t*dim : (t+1)*dim]
			for i, v := range row {
				out[i] += v
			}
			n++
		}
		if n > 0 {
			for i := range out {
				out[i] /= n
			}
		}
	default:
		// cls and none both read the first dim values
		copy(out, hidden)
	}
	return out
}
