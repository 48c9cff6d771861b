// Package models classifies callees: which calls acquire or release locks,
// which construct RAII guards, which may block, mark the UI thread, or
// violate Strict Mode, and which callees should not be traversed at all.
// The built-in tables cover the common Java/Android and C++ surface and can
// be extended from YAML model files.
package models

import (
	"strings"

	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
)

// EffectKind is the closed set of lock-effect classifications.
type EffectKind int

const (
	EffectNoEffect EffectKind = iota
	EffectLock
	EffectUnlock
	EffectGuardConstruct
	EffectGuardLock
	EffectGuardUnlock
	EffectGuardDestroy
	EffectLockedIfTrue
	EffectGuardLockedIfTrue
)

// Effect is the classification of one call site.
type Effect struct {
	Kind       EffectKind
	Locks      []ir.Exp // lock expressions for Lock/Unlock
	Guard      string   // guard identifier for the Guard* kinds
	AcquireNow bool     // GuardConstruct: acquire on construction
}

// BlockingModel describes a call that may block the current thread.
type BlockingModel struct {
	Description string
	Severity    domain.Severity
}

// Classifier holds the model tables. The zero value is unusable; construct
// with NewClassifier.
type Classifier struct {
	lockMethods   map[string]bool
	unlockMethods map[string]bool
	tryLock       map[string]bool
	blocking      map[string]BlockingModel
	strictMode    map[string]string
	uiMarkers     map[string]bool // full procnames
	uiMethodNames map[string]bool // bare method names (assertOnUiThread etc.)
	syncWrappers  map[string]bool
	skipPrefixes  []string
}

// Builtin procedure names guard frontends lower scoped-guard operations to.
const (
	BuiltinLock           = "__lock"
	BuiltinUnlock         = "__unlock"
	BuiltinGuardConstruct = "__guard_construct"
	BuiltinGuardLock      = "__guard_lock"
	BuiltinGuardUnlock    = "__guard_unlock"
	BuiltinGuardDestroy   = "__guard_destroy"
	BuiltinTryLock        = "__try_lock"
)

// NewClassifier builds a classifier with the built-in model tables.
func NewClassifier() *Classifier {
	c := &Classifier{
		lockMethods: map[string]bool{
			"java.util.concurrent.locks.Lock.lock":                       true,
			"java.util.concurrent.locks.Lock.lockInterruptibly":          true,
			"java.util.concurrent.locks.ReentrantLock.lock":              true,
			"java.util.concurrent.locks.ReentrantLock.lockInterruptibly": true,
			"java.util.concurrent.locks.ReentrantReadWriteLock.WriteLock.lock": true,
			"java.util.concurrent.locks.ReentrantReadWriteLock.ReadLock.lock":  true,
			"std::mutex.lock":           true,
			"std::recursive_mutex.lock": true,
			"pthread_mutex_lock":        true,
			"sync.Mutex.Lock":           true,
			"sync.RWMutex.Lock":         true,
			"sync.RWMutex.RLock":        true,
		},
		unlockMethods: map[string]bool{
			"java.util.concurrent.locks.Lock.unlock":          true,
			"java.util.concurrent.locks.ReentrantLock.unlock": true,
			"java.util.concurrent.locks.ReentrantReadWriteLock.WriteLock.unlock": true,
			"java.util.concurrent.locks.ReentrantReadWriteLock.ReadLock.unlock":  true,
			"std::mutex.unlock":           true,
			"std::recursive_mutex.unlock": true,
			"pthread_mutex_unlock":        true,
			"sync.Mutex.Unlock":           true,
			"sync.RWMutex.Unlock":         true,
			"sync.RWMutex.RUnlock":        true,
		},
		tryLock: map[string]bool{
			"java.util.concurrent.locks.Lock.tryLock":          true,
			"java.util.concurrent.locks.ReentrantLock.tryLock": true,
			"std::mutex.try_lock":                              true,
			"pthread_mutex_trylock":                            true,
			"sync.Mutex.TryLock":                               true,
			"sync.RWMutex.TryLock":                             true,
			"sync.RWMutex.TryRLock":                            true,
		},
		blocking: map[string]BlockingModel{
			"java.lang.Thread.sleep":                     {Description: "Thread.sleep", Severity: domain.SeverityHigh},
			"java.lang.Thread.join":                      {Description: "Thread.join", Severity: domain.SeverityHigh},
			"java.lang.Object.wait":                      {Description: "Object.wait", Severity: domain.SeverityHigh},
			"java.util.concurrent.CountDownLatch.await":  {Description: "CountDownLatch.await", Severity: domain.SeverityHigh},
			"java.util.concurrent.CyclicBarrier.await":   {Description: "CyclicBarrier.await", Severity: domain.SeverityHigh},
			"java.util.concurrent.Future.get":            {Description: "Future.get", Severity: domain.SeverityMedium},
			"java.util.concurrent.CompletableFuture.get": {Description: "CompletableFuture.get", Severity: domain.SeverityMedium},
			"android.os.AsyncTask.get":                   {Description: "AsyncTask.get", Severity: domain.SeverityMedium},
		},
		strictMode: map[string]string{
			"java.io.File.exists":                             "File.exists",
			"java.io.File.delete":                             "File.delete",
			"java.io.File.mkdirs":                             "File.mkdirs",
			"java.io.File.length":                             "File.length",
			"android.content.SharedPreferences.Editor.commit": "SharedPreferences.Editor.commit",
			"android.database.sqlite.SQLiteDatabase.execSQL":  "SQLiteDatabase.execSQL",
		},
		uiMarkers: map[string]bool{
			"android.os.AsyncTask.onPostExecute": true,
		},
		uiMethodNames: map[string]bool{
			"assertMainThread":   true,
			"assertOnUiThread":   true,
			"checkOnMainThread":  true,
			"checkOnUiThread":    true,
			"mustRunOnUiThread":  true,
			"ensureMainThread":   true,
		},
		syncWrappers: map[string]bool{
			"java.util.Collections.synchronizedMap":        true,
			"java.util.Collections.synchronizedList":       true,
			"java.util.Collections.synchronizedCollection": true,
			"java.util.Collections.synchronizedSet":        true,
		},
		skipPrefixes: []string{
			"java.", "javax.", "sun.", "com.sun.",
			"kotlin.", "scala.",
		},
	}
	return c
}

// ClassifyLockEffect classifies a call into a lock effect. NoEffect callers
// consult the remaining predicates before integrating the callee summary.
func (c *Classifier) ClassifyLockEffect(callee ir.Procname, actuals []ir.Exp) Effect {
	switch callee.Method {
	case BuiltinLock:
		return Effect{Kind: EffectLock, Locks: actuals}
	case BuiltinUnlock:
		return Effect{Kind: EffectUnlock, Locks: actuals}
	case BuiltinTryLock:
		return Effect{Kind: EffectLockedIfTrue, Locks: actuals}
	case BuiltinGuardConstruct:
		g, lock, ok := guardConstructArgs(actuals)
		if !ok {
			return Effect{Kind: EffectNoEffect}
		}
		return Effect{Kind: EffectGuardConstruct, Guard: g, Locks: []ir.Exp{lock}, AcquireNow: len(actuals) < 3}
	case BuiltinGuardLock:
		g, ok := guardArg(actuals)
		if !ok {
			return Effect{Kind: EffectNoEffect}
		}
		return Effect{Kind: EffectGuardLock, Guard: g}
	case BuiltinGuardUnlock:
		g, ok := guardArg(actuals)
		if !ok {
			return Effect{Kind: EffectNoEffect}
		}
		return Effect{Kind: EffectGuardUnlock, Guard: g}
	case BuiltinGuardDestroy:
		g, ok := guardArg(actuals)
		if !ok {
			return Effect{Kind: EffectNoEffect}
		}
		return Effect{Kind: EffectGuardDestroy, Guard: g}
	}

	name := callee.String()
	switch {
	case c.lockMethods[name]:
		return Effect{Kind: EffectLock, Locks: firstActual(actuals)}
	case c.unlockMethods[name]:
		return Effect{Kind: EffectUnlock, Locks: firstActual(actuals)}
	case c.tryLock[name]:
		return Effect{Kind: EffectLockedIfTrue, Locks: firstActual(actuals)}
	case strings.HasPrefix(callee.Class, "std::lock_guard"):
		return classifyCxxGuard(callee, actuals, true)
	case strings.HasPrefix(callee.Class, "std::unique_lock"):
		return classifyCxxGuard(callee, actuals, false)
	}
	return Effect{Kind: EffectNoEffect}
}

// classifyCxxGuard maps RAII guard methods. For lock_guard the constructor
// always acquires; unique_lock may defer (a third constructor argument).
func classifyCxxGuard(callee ir.Procname, actuals []ir.Exp, alwaysAcquires bool) Effect {
	switch callee.Method {
	case "lock_guard", "unique_lock": // constructor
		g, lock, ok := guardConstructArgs(actuals)
		if !ok {
			return Effect{Kind: EffectNoEffect}
		}
		acquire := alwaysAcquires || len(actuals) < 3
		return Effect{Kind: EffectGuardConstruct, Guard: g, Locks: []ir.Exp{lock}, AcquireNow: acquire}
	case "lock":
		g, ok := guardArg(actuals)
		if !ok {
			return Effect{Kind: EffectNoEffect}
		}
		return Effect{Kind: EffectGuardLock, Guard: g}
	case "unlock":
		g, ok := guardArg(actuals)
		if !ok {
			return Effect{Kind: EffectNoEffect}
		}
		return Effect{Kind: EffectGuardUnlock, Guard: g}
	case "try_lock":
		g, ok := guardArg(actuals)
		if !ok {
			return Effect{Kind: EffectNoEffect}
		}
		return Effect{Kind: EffectGuardLockedIfTrue, Guard: g}
	case "~lock_guard", "~unique_lock":
		g, ok := guardArg(actuals)
		if !ok {
			return Effect{Kind: EffectNoEffect}
		}
		return Effect{Kind: EffectGuardDestroy, Guard: g}
	}
	return Effect{Kind: EffectNoEffect}
}

// guardConstructArgs extracts the guard identifier and lock expression from a
// guard-constructor call: (guard, lock, ...).
func guardConstructArgs(actuals []ir.Exp) (string, ir.Exp, bool) {
	if len(actuals) < 2 {
		return "", nil, false
	}
	g, ok := guardID(actuals[0])
	if !ok {
		return "", nil, false
	}
	return g, actuals[1], true
}

func guardArg(actuals []ir.Exp) (string, bool) {
	if len(actuals) == 0 {
		return "", false
	}
	return guardID(actuals[0])
}

// guardID names a guard object. Guards are stack locals, so LocalExp is the
// expected shape; path-shaped guards use their path rendering.
func guardID(e ir.Exp) (string, bool) {
	switch g := e.(type) {
	case ir.LocalExp:
		return g.Name, true
	case ir.PathExp:
		return g.Path.String(), true
	}
	return "", false
}

func firstActual(actuals []ir.Exp) []ir.Exp {
	if len(actuals) == 0 {
		return nil
	}
	return actuals[:1]
}

// MayBlock reports whether the callee may block, with a description and
// severity for the starvation report.
func (c *Classifier) MayBlock(callee ir.Procname) (BlockingModel, bool) {
	m, ok := c.blocking[callee.String()]
	return m, ok
}

// StrictModeViolation reports whether the callee is a known Strict Mode
// violation.
func (c *Classifier) StrictModeViolation(callee ir.Procname) (string, bool) {
	d, ok := c.strictMode[callee.String()]
	return d, ok
}

// IsUIThreadMarker reports whether a call to the callee establishes that the
// current procedure runs on the UI thread.
func (c *Classifier) IsUIThreadMarker(callee ir.Procname) bool {
	return c.uiMarkers[callee.String()] || c.uiMethodNames[callee.Method]
}

// IsSynchronizedWrapper reports whether the callee wraps its first argument
// in a synchronized facade (modeled as acquire-then-release).
func (c *Classifier) IsSynchronizedWrapper(callee ir.Procname) bool {
	return c.syncWrappers[callee.String()]
}

// ShouldSkip reports whether analysis must not traverse into the callee.
// Keeps the analysis out of the standard libraries; the blocking and
// strict-mode tables are consulted before this.
func (c *Classifier) ShouldSkip(callee ir.Procname) bool {
	for _, p := range c.skipPrefixes {
		if strings.HasPrefix(callee.Class, p) {
			return true
		}
	}
	return false
}
