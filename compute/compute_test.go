package compute

import (
	"bytes"
	"log"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridLayout(t *testing.T) {
	assert := assert.New(t)
	g := NewGrid(Int3{3, 2, 2})
	assert.Equal([]int{2, 2, 3}, []int(g.Tensor().Shape()))
	assert.Len(g.Data(), 12)

	g.Set(2, 1, 1, 5)
	assert.Equal(float32(5), g.Data()[11])
	assert.Equal(float32(5), g.At(2, 1, 1))
	assert.Equal([]float32{0, 0, 0, 0, 0, 5}, g.Channel(1))

	assert.True(g.InBounds(0, 0))
	assert.True(g.InBounds(2, 1))
	assert.False(g.InBounds(3, 0))
	assert.False(g.InBounds(0, -1))
}

func TestGridClone(t *testing.T) {
	g := NewGrid2D(Int2{2, 2}, 1)
	g.Set(1, 1, 0, 3)
	c := g.Clone()
	c.Set(1, 1, 0, 4)
	assert.Equal(t, float32(3), g.At(1, 1, 0))
	assert.True(t, g.SameShape(c))
}

func TestGridFromBacking(t *testing.T) {
	backing := []float32{1, 2, 3, 4}
	g, err := GridFromBacking(Int3{2, 2, 1}, backing)
	require.NoError(t, err)
	assert.Equal(t, float32(3), g.At(0, 1, 0))

	if _, err = GridFromBacking(Int3{3, 2, 1}, backing); err == nil {
		t.Error("Expected an error for a mismatched backing")
	}
}

func TestDoubleBufferSwap(t *testing.T) {
	d := NewDoubleBuffer2D(Int2{2, 2}, 2)
	front, back := d.Front, d.Back
	d.Swap()
	if d.Front != back || d.Back != front {
		t.Error("Swap should exchange the halves")
	}
	assert.Equal(t, Int3{2, 2, 2}, d.Size())
}

func TestProgram(t *testing.T) {
	noop := func(args interface{}) (Body, error) { return func(x, y int) {}, nil }

	p, err := NewProgram(Library{"a": noop}, Library{"b": noop})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p.Kernels())

	k, err := p.LoadKernel("b")
	require.NoError(t, err)
	assert.Equal(t, "b", k.Name())

	_, err = p.LoadKernel("c")
	var kerr *KernelError
	if assert.True(t, errors.As(err, &kerr)) {
		assert.Equal(t, "c", kerr.Name)
	}

	_, err = NewProgram(Library{"a": noop}, Library{"a": noop})
	assert.Error(t, err, "duplicate kernels should fail the build")

	_, err = NewProgram(Library{"a": nil})
	assert.Error(t, err, "kernels without a body should fail the build")
}

func TestQueueDispatch(t *testing.T) {
	type args struct{ out *Grid }
	lib := Library{
		"index": func(a interface{}) (Body, error) {
			arg, ok := a.(*args)
			if !ok {
				return nil, errors.Errorf("Expected *args. Got %T instead", a)
			}
			return func(x, y int) {
				arg.out.Set(x, y, 0, float32(y*10+x))
			}, nil
		},
	}
	p, err := NewProgram(lib)
	require.NoError(t, err)
	k, err := p.LoadKernel("index")
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 3, 16} {
		var buf bytes.Buffer
		sys := NewSystem(workers, log.New(&buf, "", 0))
		q := sys.Queue()
		out := NewGrid2D(Int2{4, 7}, 1)
		require.NoError(t, q.Dispatch(k, &args{out}, Int2{4, 7}))
		for y := 0; y < 7; y++ {
			for x := 0; x < 4; x++ {
				if got := out.At(x, y, 0); got != float32(y*10+x) {
					t.Errorf("workers %d: (%d, %d) = %v", workers, x, y, got)
				}
			}
		}
		assert.Equal(t, 1, q.Dispatches())
		q.Finish()
		assert.Contains(t, buf.String(), "1 dispatches")

		assert.Error(t, q.Dispatch(k, out, Int2{4, 7}), "wrong argument type should fail to bind")
		assert.Error(t, q.Dispatch(k, &args{out}, Int2{0, 7}), "empty ranges cannot be dispatched")
	}
}

func TestQueueVisitsEveryCellOnce(t *testing.T) {
	var count int64
	lib := Library{"count": func(a interface{}) (Body, error) {
		return func(x, y int) { atomic.AddInt64(&count, 1) }, nil
	}}
	p, err := NewProgram(lib)
	require.NoError(t, err)
	k, _ := p.LoadKernel("count")
	q := NewSystem(0, nil).Queue()
	require.NoError(t, q.Dispatch(k, nil, Int2{13, 11}))
	assert.Equal(t, int64(13*11), count)
}

func TestQueueOps(t *testing.T) {
	assert := assert.New(t)
	q := NewSystem(1, nil).Queue()
	a := NewGrid2D(Int2{2, 2}, 2)
	b := NewGrid2D(Int2{2, 2}, 2)

	assert.NoError(q.Fill(a, 1.5))
	assert.Equal([]float32{1.5, 1.5, 1.5, 1.5, 1.5, 1.5, 1.5, 1.5}, a.Data())

	assert.NoError(q.FillChannel(b, 1, 2))
	assert.Equal([]float32{0, 0, 0, 0, 2, 2, 2, 2}, b.Data())
	assert.Error(q.FillChannel(b, 2, 2))

	assert.NoError(q.Add(a, b))
	assert.Equal([]float32{1.5, 1.5, 1.5, 1.5, 3.5, 3.5, 3.5, 3.5}, a.Data())

	assert.NoError(q.Copy(b, a))
	assert.Equal(a.Data(), b.Data())

	c := NewGrid2D(Int2{3, 2}, 1)
	assert.Error(q.Copy(c, a))
	assert.Error(q.Add(c, a))
}
