package optim

import (
	"fmt"
	"math"

	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam combines ideas from RMSprop and momentum:
//   - Maintains exponential moving averages of gradients (first moment)
//   - Maintains exponential moving averages of squared gradients (second moment)
//   - Applies bias correction to compensate for initialization at zero
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Example:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float32{0.9, 0.999},
//	    Eps:   1e-8,
//	}, backend)
type Adam[B tensor.Backend] struct {
	params  []*nn.Parameter[B]
	lr      float32
	beta1   float32
	beta2   float32
	eps     float32
	t       int // Timestep for bias correction
	m       map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
	v       map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
	backend B
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for the moment running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer for the given parameters.
//
// Zero config fields fall back to the standard defaults: LR 0.001,
// betas [0.9, 0.999], eps 1e-8.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[B]{
		params:  params,
		lr:      config.LR,
		beta1:   config.Betas[0],
		beta2:   config.Betas[1],
		eps:     config.Eps,
		t:       0,
		m:       make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		v:       make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		backend: backend,
	}
}

// Step performs a single optimization step using the Adam update rule.
//
// Updates run element-wise on the raw parameter buffers, outside any
// gradient tape, so stepping never records operations.
// Parameters with no gradient are skipped.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, param := range a.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		m, exists := a.m[param]
		if !exists {
			m = tensor.Zeros[float32](param.Tensor().Shape(), a.backend)
			a.m[param] = m
		}
		v, exists := a.v[param]
		if !exists {
			v = tensor.Zeros[float32](param.Tensor().Shape(), a.backend)
			a.v[param] = v
		}

		gradData := grad.AsFloat32()
		mData := m.Raw().AsFloat32()
		vData := v.Raw().AsFloat32()
		paramData := param.Tensor().Raw().AsFloat32()

		for i := range paramData {
			g := gradData[i]

			// m_t = beta1 * m_{t-1} + (1-beta1) * grad
			mData[i] = a.beta1*mData[i] + (1.0-a.beta1)*g

			// v_t = beta2 * v_{t-1} + (1-beta2) * grad²
			vData[i] = a.beta2*vData[i] + (1.0-a.beta2)*g*g

			mHat := mData[i] / biasCorrection1
			vHat := vData[i] / biasCorrection2

			// param = param - lr * m_hat / (sqrt(v_hat) + eps)
			paramData[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam[B]) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// Name returns "Adam".
func (a *Adam[B]) Name() string {
	return "Adam"
}

// GetLR returns the current learning rate.
func (a *Adam[B]) GetLR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling during training.
func (a *Adam[B]) SetLR(lr float32) {
	a.lr = lr
}

// GetTimestep returns the current timestep.
func (a *Adam[B]) GetTimestep() int {
	return a.t
}

// StateDict returns the optimizer state for serialization.
//
// Exports the moment buffers per parameter under "m.{param_index}" and
// "v.{param_index}", plus the timestep under "t" as a one-element int64
// tensor. Restoring the timestep keeps bias correction consistent across
// a checkpoint boundary.
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)

	for i, param := range a.params {
		if m, exists := a.m[param]; exists {
			stateDict[fmt.Sprintf("m.%d", i)] = m.Raw()
		}
		if v, exists := a.v[param]; exists {
			stateDict[fmt.Sprintf("v.%d", i)] = v.Raw()
		}
	}

	step, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int64, a.backend.Device())
	if err == nil {
		step.AsInt64()[0] = int64(a.t)
		stateDict["t"] = step
	}

	return stateDict
}

// LoadStateDict loads optimizer state from serialization.
//
// Restores moment buffers and the timestep. The buffers are copied, so the
// optimizer never aliases the caller's tensors. Parameters without saved
// moments get fresh zero buffers on their next step.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	a.m = make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])
	a.v = make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])

	for i, param := range a.params {
		if mRaw, exists := stateDict[fmt.Sprintf("m.%d", i)]; exists {
			if !mRaw.Shape().Equal(param.Tensor().Shape()) {
				return fmt.Errorf("first moment shape mismatch for parameter %d: expected %v, got %v",
					i, param.Tensor().Shape(), mRaw.Shape())
			}
			m := tensor.Zeros[float32](param.Tensor().Shape(), a.backend)
			copy(m.Raw().AsFloat32(), mRaw.AsFloat32())
			a.m[param] = m
		}
		if vRaw, exists := stateDict[fmt.Sprintf("v.%d", i)]; exists {
			if !vRaw.Shape().Equal(param.Tensor().Shape()) {
				return fmt.Errorf("second moment shape mismatch for parameter %d: expected %v, got %v",
					i, param.Tensor().Shape(), vRaw.Shape())
			}
			v := tensor.Zeros[float32](param.Tensor().Shape(), a.backend)
			copy(v.Raw().AsFloat32(), vRaw.AsFloat32())
			a.v[param] = v
		}
	}

	if stepRaw, exists := stateDict["t"]; exists {
		if stepRaw.DType() != tensor.Int64 || stepRaw.NumElements() != 1 {
			return fmt.Errorf("timestep must be a one-element int64 tensor, got %s %v",
				stepRaw.DType(), stepRaw.Shape())
		}
		a.t = int(stepRaw.AsInt64()[0])
	}

	return nil
}
