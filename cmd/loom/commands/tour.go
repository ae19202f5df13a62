package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loom-ml/loom/internal/autodiff"
	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/tensor"
	"github.com/loom-ml/loom/internal/viz"
)

var tourCmd = &cobra.Command{
	Use:   "tour",
	Short: "Walk through tensor semantics in the terminal",
	Long: `A guided walkthrough of the tensor library's semantics.

Each section runs real operations and prints what happened: buffer
sharing and mutation, views and strides, broadcasting (including a
shape mismatch, caught and explained), dtype casting, device placement,
and a small gradient computation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := viz.NewStyles(viz.DefaultTheme)
		backend := cpu.New()

		tourMutation(st, backend)
		tourViews(st, backend)
		tourBroadcasting(st, backend)
		tourCasting(st, backend)
		tourDevices(st, backend)
		tourAutograd(st)

		fmt.Println(st.Dim.Render("End of tour. Next: loom train, then loom demo --checkpoint <path>."))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tourCmd)
}

func tourSection(st viz.Styles, n int, title string) {
	fmt.Println(st.Title.Render(fmt.Sprintf("\n%d. %s", n, title)))
}

// caught runs fn and returns the panic message, or "" if fn returned
// normally. The tour uses it to show failing operations without dying.
func caught(fn func()) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprint(r)
		}
	}()
	fn()
	return ""
}

func tourMutation(st viz.Styles, b *cpu.CPUBackend) {
	tourSection(st, 1, "Mutation and buffer sharing")

	a := tensor.Zeros[float32](tensor.Shape{2, 3}, b)
	a.Set(5, 1, 2)
	fmt.Printf("  a after a.Set(5, 1, 2):      %v\n", a.Data())

	// Clone shares the buffer; writes through either stay visible to both.
	c := a.Clone()
	c.Set(-1, 0, 0)
	fmt.Printf("  a after a clone's Set(-1):   %v (clones share storage)\n", a.Data())

	// Operators are out-of-place: the inputs keep their values.
	sum := a.Add(a)
	fmt.Printf("  a.Add(a):                    %v\n", sum.Data())
	fmt.Printf("  a unchanged:                 %v\n", a.Data())
}

func tourViews(st viz.Styles, b *cpu.CPUBackend) {
	tourSection(st, 2, "Views and strides")

	a := tensor.Arange[float32](0, 6, b).Reshape(2, 3)
	fmt.Printf("  a = arange(6).Reshape(2, 3): shape %v, strides %v\n", a.Shape(), a.Raw().Strides())

	// Reshape is a view: no copy, writes show through.
	flat := a.Reshape(6)
	flat.Set(99, 0)
	fmt.Printf("  write through Reshape(6):    a.At(0, 0) = %v\n", a.At(0, 0))

	// Transpose materializes a fresh buffer in the permuted layout.
	at := a.T()
	at.Set(0, 0, 0)
	fmt.Printf("  a.T():                       shape %v, strides %v\n", at.Shape(), at.Raw().Strides())
	fmt.Printf("  write through T():           a.At(0, 0) = %v (transpose copies)\n", a.At(0, 0))
}

func tourBroadcasting(st viz.Styles, b *cpu.CPUBackend) {
	tourSection(st, 3, "Broadcasting")

	m := tensor.Ones[float32](tensor.Shape{2, 3}, b)
	row, _ := tensor.FromSlice([]float32{10, 20, 30}, tensor.Shape{3}, b)
	fmt.Printf("  ones(2, 3) + row(3):         %v\n", m.Add(row).Data())
	fmt.Println("  The {3} row stretches to {2, 3}: dimensions align from the right,")
	fmt.Println("  and a size-1 (or missing) dimension repeats to match.")

	// Neither {2, 3} nor {4} can stretch to cover the other.
	bad, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4}, b)
	if msg := caught(func() { m.Add(bad) }); msg != "" {
		fmt.Printf("  ones(2, 3) + vec(4) panics:  %s\n", st.Dim.Render(msg))
	}
	fmt.Println("  3 and 4 are different and neither is 1, so there is no common shape.")
}

func tourCasting(st viz.Styles, b *cpu.CPUBackend) {
	tourSection(st, 4, "Dtype casting")

	f, _ := tensor.FromSlice([]float32{0.5, 1.9, -1.9}, tensor.Shape{3}, b)
	fmt.Printf("  float32 %v -> Int32():       %v (truncates toward zero)\n", f.Data(), f.Int32().Data())
	fmt.Printf("  and back to Float32():       %v (the fraction is gone)\n", f.Int32().Float32().Data())
}

func tourDevices(st viz.Styles, b *cpu.CPUBackend) {
	tourSection(st, 5, "Device placement")

	a := tensor.Ones[float32](tensor.Shape{2, 2}, b)
	g := a.To(tensor.WebGPU)
	fmt.Printf("  a:                           %s\n", a)
	fmt.Printf("  a.To(WebGPU):                %s (a fresh copy, storage not shared)\n", g)

	// Mixed-device arithmetic is refused rather than silently copied.
	if msg := caught(func() { a.Add(g) }); msg != "" {
		fmt.Printf("  a.Add(a.To(WebGPU)) panics:  %s\n", st.Dim.Render(msg))
	}
	fmt.Println("  Transfers are always explicit: move one side with To() first.")
}

func tourAutograd(st viz.Styles) {
	tourSection(st, 6, "Autograd")

	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	defer backend.Tape().Clear()

	x, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	x.RequireGrad()

	// y = sum(x * x), so dy/dx = 2x.
	y := x.Mul(x).Sum()
	fmt.Printf("  x = %v\n", x.Data())
	fmt.Printf("  y = sum(x * x) = %v\n", y.Item())

	grads := autodiff.Backward(y, backend)
	fmt.Printf("  dy/dx = %v (2x, as the math says)\n", grads[x.Raw()].AsFloat32())
}
