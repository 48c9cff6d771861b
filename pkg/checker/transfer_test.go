package checker

import (
	"testing"

	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
	"github.com/locksight/locksight/pkg/models"
)

func javaAttrs(method string) *ir.Attributes {
	return &ir.Attributes{
		Name:     ir.Procname{Class: "com.example.A", Method: method},
		Loc:      ir.Location{File: "A.java", Line: 1},
		Language: ir.LangJava,
		Formals:  []ir.Formal{{Name: "this", Type: "com.example.A"}},
	}
}

func newTransfer(attrs *ir.Attributes) *Transfer {
	return &Transfer{
		Attrs:      attrs,
		Classifier: models.NewClassifier(),
		Summaries:  NewMemStore(),
	}
}

func thisField(field string) ir.Exp {
	return ir.PathExp{Path: ir.AccessPath{
		Root:   ir.Root{Kind: ir.RootFormal, Index: 0, Name: "this", Type: "com.example.A"},
		Fields: []ir.Field{{Name: field}},
	}}
}

func lockCall(field string, line int) ir.DirectCall {
	return ir.DirectCall{
		Callee:  ir.Procname{Method: models.BuiltinLock},
		Actuals: []ir.Exp{thisField(field)},
		At:      ir.Location{File: "A.java", Line: line},
	}
}

func unlockCall(field string, line int) ir.DirectCall {
	return ir.DirectCall{
		Callee:  ir.Procname{Method: models.BuiltinUnlock},
		Actuals: []ir.Exp{thisField(field)},
		At:      ir.Location{File: "A.java", Line: line},
	}
}

func TestTransferLockUnlock(t *testing.T) {
	tf := newTransfer(javaAttrs("m"))
	st := domain.Bottom()

	st = tf.Exec(st, lockCall("mu", 10))
	if st.Held.Len() != 1 {
		t.Fatalf("held = %d after lock, want 1", st.Held.Len())
	}
	if st.Pairs.Len() != 1 {
		t.Fatalf("pairs = %d after lock, want 1", st.Pairs.Len())
	}

	st = tf.Exec(st, unlockCall("mu", 11))
	if st.Held.Len() != 0 {
		t.Errorf("held = %d after unlock, want 0", st.Held.Len())
	}
}

func TestTransferSkipsUnrecognizedLock(t *testing.T) {
	tf := newTransfer(javaAttrs("m"))
	call := ir.DirectCall{
		Callee:  ir.Procname{Method: models.BuiltinLock},
		Actuals: []ir.Exp{ir.LocalExp{Name: "tmp"}},
		At:      ir.Location{File: "A.java", Line: 5},
	}
	st := tf.Exec(domain.Bottom(), call)
	if st.Held.Len() != 0 || st.Pairs.Len() != 0 {
		t.Error("local-rooted lock expression should drop silently")
	}
}

func TestTransferIdentityInstructions(t *testing.T) {
	tf := newTransfer(javaAttrs("m"))
	st := domain.Bottom()
	for _, instr := range []ir.Instr{
		ir.Assign{At: ir.Location{Line: 1}},
		ir.Assume{At: ir.Location{Line: 2}},
		ir.Metadata{At: ir.Location{Line: 3}},
		ir.IndirectCall{At: ir.Location{Line: 4}},
	} {
		if got := tf.Exec(st, instr); !got.Equal(st) {
			t.Errorf("%T is not identity", instr)
		}
	}
}

func TestTransferGuardLifecycle(t *testing.T) {
	tf := newTransfer(javaAttrs("m"))
	st := domain.Bottom()

	construct := ir.DirectCall{
		Callee:  ir.Procname{Method: models.BuiltinGuardConstruct},
		Actuals: []ir.Exp{ir.LocalExp{Name: "g"}, thisField("mu")},
		At:      ir.Location{File: "A.java", Line: 10},
	}
	st = tf.Exec(st, construct)
	if st.Held.Len() != 1 {
		t.Fatal("guard construct with acquire_now did not lock")
	}
	if st.Guards.Len() != 1 {
		t.Fatal("guard binding missing")
	}

	st = tf.Exec(st, ir.DirectCall{
		Callee:  ir.Procname{Method: models.BuiltinGuardUnlock},
		Actuals: []ir.Exp{ir.LocalExp{Name: "g"}},
		At:      ir.Location{File: "A.java", Line: 11},
	})
	if st.Held.Len() != 0 {
		t.Error("guard unlock did not release")
	}

	st = tf.Exec(st, ir.DirectCall{
		Callee:  ir.Procname{Method: models.BuiltinGuardLock},
		Actuals: []ir.Exp{ir.LocalExp{Name: "g"}},
		At:      ir.Location{File: "A.java", Line: 12},
	})
	if st.Held.Len() != 1 {
		t.Error("guard relock did not acquire")
	}

	st = tf.Exec(st, ir.DirectCall{
		Callee:  ir.Procname{Method: models.BuiltinGuardDestroy},
		Actuals: []ir.Exp{ir.LocalExp{Name: "g"}},
		At:      ir.Location{File: "A.java", Line: 13},
	})
	if st.Held.Len() != 0 {
		t.Error("guard destroy did not release the held lock")
	}
	if st.Guards.Len() != 0 {
		t.Error("guard destroy did not remove the binding")
	}
}

func TestTransferUnboundGuardIsIdentity(t *testing.T) {
	tf := newTransfer(javaAttrs("m"))
	st := tf.Exec(domain.Bottom(), ir.DirectCall{
		Callee:  ir.Procname{Method: models.BuiltinGuardLock},
		Actuals: []ir.Exp{ir.LocalExp{Name: "never_bound"}},
		At:      ir.Location{Line: 5},
	})
	if !st.Equal(domain.Bottom()) {
		t.Error("unbound guard operation should be identity")
	}
}

func TestTransferSynchronizedWrapper(t *testing.T) {
	tf := newTransfer(javaAttrs("m"))
	call := ir.DirectCall{
		Callee:  ir.Procname{Class: "java.util.Collections", Method: "synchronizedMap"},
		Actuals: []ir.Exp{thisField("map")},
		At:      ir.Location{File: "A.java", Line: 7},
	}
	st := tf.Exec(domain.Bottom(), call)
	if st.Held.Len() != 0 {
		t.Error("synchronized wrapper must be balanced")
	}
	if st.Pairs.Len() != 1 {
		t.Error("synchronized wrapper should witness its acquire")
	}
}

func TestTransferThreadAndBlockingModels(t *testing.T) {
	tf := newTransfer(javaAttrs("onClick"))
	st := domain.Bottom()

	st = tf.Exec(st, ir.DirectCall{
		Callee: ir.Procname{Class: "com.example.Threads", Method: "assertOnUiThread"},
		At:     ir.Location{Line: 3},
	})
	if !st.UIThread.IsTrue() {
		t.Fatal("UI-thread marker did not set the flag")
	}

	st = tf.Exec(st, ir.DirectCall{
		Callee: ir.Procname{Class: "java.lang.Thread", Method: "sleep"},
		At:     ir.Location{File: "A.java", Line: 4},
	})
	var found bool
	for _, p := range st.Pairs.All() {
		if p.Event.Kind == domain.EventMayBlock && p.OnUIThread {
			found = true
			if p.Event.Severity != domain.SeverityHigh {
				t.Errorf("Thread.sleep severity = %v, want HIGH", p.Event.Severity)
			}
		}
	}
	if !found {
		t.Error("blocking call did not witness a UI-flagged MayBlock pair")
	}

	st = tf.Exec(st, ir.DirectCall{
		Callee: ir.Procname{Class: "java.io.File", Method: "exists"},
		At:     ir.Location{File: "A.java", Line: 5},
	})
	var strict bool
	for _, p := range st.Pairs.All() {
		if p.Event.Kind == domain.EventStrictModeCall {
			strict = true
		}
	}
	if !strict {
		t.Error("strict-mode call did not witness a pair")
	}
}

func TestTransferClangSuppressesBlocking(t *testing.T) {
	attrs := javaAttrs("m")
	attrs.Language = ir.LangClang
	tf := newTransfer(attrs)

	st := tf.Exec(domain.Bottom(), ir.DirectCall{
		Callee: ir.Procname{Class: "java.lang.Thread", Method: "sleep"},
		At:     ir.Location{Line: 4},
	})
	for _, p := range st.Pairs.All() {
		if p.Event.Kind == domain.EventMayBlock {
			t.Error("blocking analysis must be suppressed outside Java")
		}
	}
}

func TestTransferSkipModelIsIdentity(t *testing.T) {
	tf := newTransfer(javaAttrs("m"))
	st := tf.Exec(domain.Bottom(), ir.DirectCall{
		Callee: ir.Procname{Class: "java.util.HashMap", Method: "get"},
		At:     ir.Location{Line: 9},
	})
	if !st.Equal(domain.Bottom()) {
		t.Error("skipped callee should be identity")
	}
}

func TestInitialStateSynchronizedMethods(t *testing.T) {
	attrs := javaAttrs("m")
	attrs.IsSync = true
	st := InitialState(attrs)
	if st.Held.Len() != 1 {
		t.Error("synchronized method should hold its receiver monitor at entry")
	}

	static := javaAttrs("init")
	static.IsStaticSync = true
	st = InitialState(static)
	held := st.Held.All()
	if len(held) != 1 || !held[0].Lock.IsClassObject() {
		t.Error("static synchronized method should hold the class-object lock")
	}

	ui := javaAttrs("onClick")
	ui.OnUIThread = true
	if !InitialState(ui).UIThread.IsTrue() {
		t.Error("UiThread annotation should set the entry thread flag")
	}
}
