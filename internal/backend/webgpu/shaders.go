//go:build windows

package webgpu

import "fmt"

// workgroupSize is the thread count per workgroup for 1D dispatches.
const workgroupSize = 256

// binaryShaderSrc builds the WGSL source for an element-wise binary op.
// expr combines the two loaded values, e.g. "x + y".
func binaryShaderSrc(expr string) string {
	return fmt.Sprintf(`
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(%d)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        let x = a[idx];
        let y = b[idx];
        result[idx] = %s;
    }
}
`, workgroupSize, expr)
}

// unaryShaderSrc builds the WGSL source for an element-wise unary op.
// expr transforms the loaded value, e.g. "max(x, 0.0)".
func unaryShaderSrc(expr string) string {
	return fmt.Sprintf(`
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(%d)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        let x = a[idx];
        result[idx] = %s;
    }
}
`, workgroupSize, expr)
}

// binaryExprs maps op names to their WGSL combine expressions.
var binaryExprs = map[string]string{
	"add": "x + y",
	"sub": "x - y",
	"mul": "x * y",
	"div": "x / y",
}

// unaryExprs maps op names to their WGSL transform expressions.
var unaryExprs = map[string]string{
	"exp":     "exp(x)",
	"log":     "log(x)",
	"sqrt":    "sqrt(x)",
	"relu":    "max(x, 0.0)",
	"sigmoid": "1.0 / (1.0 + exp(-x))",
	"tanh":    "tanh(x)",
}

// scaleOffsetShader computes result = x * scale + offset. One pipeline
// covers all four scalar ops: the host folds the op into (scale, offset).
const scaleOffsetShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    scale: f32,
    offset: f32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] * params.scale + params.offset;
    }
}
`

// matmulShader computes C = A @ B for A [M,K], B [K,N]. One thread per
// output element, 16x16 tiles per workgroup.
const matmulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    m: u32,
    k: u32,
    n: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;
    if (row >= params.m || col >= params.n) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.k; k = k + 1u) {
        sum = sum + a[row * params.k + k] * b[k * params.n + col];
    }
    result[row * params.n + col] = sum;
}
`

// batchMatMulShader computes C[b] = A[b] @ B[b] for A [batch,M,K] and
// B [batch,K,N]. The z axis of the dispatch walks the batch.
const batchMatMulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    batch: u32,
    m: u32,
    k: u32,
    n: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16, 1)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let batch = global_id.z;
    let row = global_id.y;
    let col = global_id.x;
    if (batch >= params.batch || row >= params.m || col >= params.n) {
        return;
    }

    let a_base = batch * params.m * params.k;
    let b_base = batch * params.k * params.n;
    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.k; k = k + 1u) {
        sum = sum + a[a_base + row * params.k + k] * b[b_base + k * params.n + col];
    }
    result[batch * params.m * params.n + row * params.n + col] = sum;
}
`

// softmaxShader normalizes each row of a [rows, cols] matrix. One thread
// owns one row: max-subtract for stability, exponentiate, renormalize.
const softmaxShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    rows: u32,
    cols: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.x;
    if (row >= params.rows) {
        return;
    }
    let base = row * params.cols;

    var max_val: f32 = a[base];
    for (var i: u32 = 1u; i < params.cols; i = i + 1u) {
        max_val = max(max_val, a[base + i]);
    }

    var sum: f32 = 0.0;
    for (var i: u32 = 0u; i < params.cols; i = i + 1u) {
        let e = exp(a[base + i] - max_val);
        result[base + i] = e;
        sum = sum + e;
    }

    for (var i: u32 = 0u; i < params.cols; i = i + 1u) {
        result[base + i] = result[base + i] / sum;
    }
}
`
