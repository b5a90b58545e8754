package main

import (
	"sort"

	"github.com/wippyai/mir-machine/ir"
	"github.com/wippyai/mir-machine/types"
)

// demo is a built-in program the runner can execute or step through.
type demo struct {
	name  string
	desc  string
	build func() *ir.Program
}

var demos = []demo{
	{"fib", "iterative fibonacci(20), a clean run", buildFib},
	{"heap-sum", "malloc an array, fill it, sum it, free it", buildHeapSum},
	{"caught-abort", "failed assertion caught by a handler block", buildCaughtAbort},
	{"use-after-free", "read through a pointer after free", buildUseAfterFree},
	{"double-free", "free the same block twice", buildDoubleFree},
	{"uninit-read", "read a local before writing it", buildUninitRead},
	{"overflow", "u8 arithmetic past 255", buildOverflow},
	{"out-of-bounds", "index past the end of an array", buildOutOfBounds},
}

func demoByName(name string) (demo, bool) {
	for _, d := range demos {
		if d.name == name {
			return d, true
		}
	}
	return demo{}, false
}

func demoNames() []string {
	names := make([]string, len(demos))
	for i, d := range demos {
		names[i] = d.name
	}
	sort.Strings(names)
	return names
}

func buildFib() *ir.Program {
	b := ir.NewFunc("main", types.TypeU64)
	a := b.Local(types.TypeU64)
	f := b.Local(types.TypeU64)
	t := b.Local(types.TypeU64)
	i := b.Local(types.TypeU64)
	c := b.Local(types.TypeBool)

	entry := b.Block()
	head := b.Block()
	body := b.Block()
	exit := b.Block()

	entry.
		Assign(ir.LocalPlace(a), ir.Use(ir.ConstU64(0))).
		Assign(ir.LocalPlace(f), ir.Use(ir.ConstU64(1))).
		Assign(ir.LocalPlace(i), ir.Use(ir.ConstU64(0))).
		Goto(head.ID)

	head.Assign(ir.LocalPlace(c), ir.Bin(ir.Lt, ir.Copy(ir.LocalPlace(i)), ir.ConstU64(20)))
	head.SwitchInt(ir.Copy(ir.LocalPlace(c)), []uint64{0}, []int{exit.ID}, body.ID)

	body.
		Assign(ir.LocalPlace(t), ir.Bin(ir.Add, ir.Copy(ir.LocalPlace(a)), ir.Copy(ir.LocalPlace(f)))).
		Assign(ir.LocalPlace(a), ir.Use(ir.Copy(ir.LocalPlace(f)))).
		Assign(ir.LocalPlace(f), ir.Use(ir.Copy(ir.LocalPlace(t)))).
		Assign(ir.LocalPlace(i), ir.Bin(ir.Add, ir.Copy(ir.LocalPlace(i)), ir.ConstU64(1))).
		Goto(head.ID)

	exit.Assign(b.RetPlace(), ir.Use(ir.Copy(ir.LocalPlace(a))))
	exit.Return()

	return ir.NewProgram().Add(b.Build())
}

func buildHeapSum() *ir.Program {
	arr := types.ArrayOf(types.TypeU64, 8)
	b := ir.NewFunc("main", types.TypeU64)
	p := b.Local(types.PointerTo(arr))
	sum := b.Local(types.TypeU64)

	entry := b.Block()
	fill := b.Block()
	done := b.Block()
	out := b.Block()

	entry.Call("malloc", []ir.Operand{ir.ConstU64(64)}, ir.LocalPlace(p), fill.ID)

	fill.Assign(ir.LocalPlace(sum), ir.Use(ir.ConstU64(0)))
	for i := 0; i < 8; i++ {
		elem := ir.LocalPlace(p).Deref().Index(i)
		fill.Assign(elem, ir.Use(ir.ConstU64(uint64(i*i))))
	}
	for i := 0; i < 8; i++ {
		elem := ir.LocalPlace(p).Deref().Index(i)
		fill.Assign(ir.LocalPlace(sum), ir.Bin(ir.Add, ir.Copy(ir.LocalPlace(sum)), ir.Copy(elem)))
	}
	fill.Drop(ir.LocalPlace(p), done.ID)

	done.Assign(b.RetPlace(), ir.Use(ir.Copy(ir.LocalPlace(sum))))
	done.Goto(out.ID)
	out.Return()

	return ir.NewProgram().Add(b.Build())
}

func buildCaughtAbort() *ir.Program {
	b := ir.NewFunc("main", types.TypeU64)

	entry := b.Block()
	never := b.Block()
	catch := b.Block()
	b.CatchAt(catch.ID)

	entry.Assert(ir.ConstBool(false), true, "index out of range")
	entry.Goto(never.ID)
	never.Unreachable()

	catch.Assign(b.RetPlace(), ir.Use(ir.ConstU64(99)))
	catch.Return()

	return ir.NewProgram().Add(b.Build())
}

func buildUseAfterFree() *ir.Program {
	b := ir.NewFunc("main", types.TypeU64)
	p := b.Local(types.PointerTo(types.TypeU64))
	unit := b.Local(types.TypeUnit)

	entry := b.Block()
	write := b.Block()
	freed := b.Block()
	read := b.Block()

	entry.Call("malloc", []ir.Operand{ir.ConstU64(8)}, ir.LocalPlace(p), write.ID)
	write.Assign(ir.LocalPlace(p).Deref(), ir.Use(ir.ConstU64(7)))
	write.Call("free", []ir.Operand{ir.Copy(ir.LocalPlace(p))}, ir.LocalPlace(unit), freed.ID)
	freed.Assign(b.RetPlace(), ir.Use(ir.Copy(ir.LocalPlace(p).Deref())))
	freed.Goto(read.ID)
	read.Return()

	return ir.NewProgram().Add(b.Build())
}

func buildDoubleFree() *ir.Program {
	b := ir.NewFunc("main", types.TypeU64)
	p := b.Local(types.PointerTo(types.TypeU64))
	unit := b.Local(types.TypeUnit)

	entry := b.Block()
	first := b.Block()
	second := b.Block()
	out := b.Block()

	entry.Call("malloc", []ir.Operand{ir.ConstU64(8)}, ir.LocalPlace(p), first.ID)
	first.Call("free", []ir.Operand{ir.Copy(ir.LocalPlace(p))}, ir.LocalPlace(unit), second.ID)
	second.Call("free", []ir.Operand{ir.Copy(ir.LocalPlace(p))}, ir.LocalPlace(unit), out.ID)
	out.Assign(b.RetPlace(), ir.Use(ir.ConstU64(0)))
	out.Return()

	return ir.NewProgram().Add(b.Build())
}

func buildUninitRead() *ir.Program {
	b := ir.NewFunc("main", types.TypeU64)
	x := b.Local(types.TypeU64)

	entry := b.Block()
	entry.Assign(b.RetPlace(), ir.Use(ir.Copy(ir.LocalPlace(x))))
	entry.Return()

	return ir.NewProgram().Add(b.Build())
}

func buildOverflow() *ir.Program {
	b := ir.NewFunc("main", types.TypeU8)
	x := b.Local(types.TypeU8)

	entry := b.Block()
	entry.
		Assign(ir.LocalPlace(x), ir.Use(ir.ConstU8(255))).
		Assign(b.RetPlace(), ir.Bin(ir.Add, ir.Copy(ir.LocalPlace(x)), ir.ConstU8(1)))
	entry.Return()

	return ir.NewProgram().Add(b.Build())
}

func buildOutOfBounds() *ir.Program {
	arr := types.ArrayOf(types.TypeU64, 4)
	b := ir.NewFunc("main", types.TypeU64)
	a := b.Local(arr)

	entry := b.Block()
	entry.
		Assign(ir.LocalPlace(a).Index(0), ir.Use(ir.ConstU64(1))).
		Assign(b.RetPlace(), ir.Use(ir.Copy(ir.LocalPlace(a).Index(9))))
	entry.Return()

	return ir.NewProgram().Add(b.Build())
}
