package checker

import (
	"runtime"
	"sync"

	"github.com/locksight/locksight/internal/logging"
	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
	"github.com/locksight/locksight/pkg/models"
)

// Options configures the whole-program driver.
type Options struct {
	// Jobs is the number of worker goroutines per pass. Zero means GOMAXPROCS.
	Jobs int
	// MaxPasses bounds the whole-program iteration. Zero means the default.
	// Summaries grow monotonically, so convergence is usually reached within
	// the call-graph depth.
	MaxPasses  int
	Classifier *models.Classifier
}

const defaultMaxPasses = 16

// AnalyzeProcedure computes one procedure's summary against the summaries
// already in the store. An internal invariant violation aborts this
// procedure only.
func AnalyzeProcedure(proc *ir.Procedure, classifier *models.Classifier, store SummaryReader) (sum domain.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(domain.InvariantError); ok {
				err = ie
				return
			}
			panic(r)
		}
	}()
	tf := &Transfer{Attrs: &proc.Attrs, Classifier: classifier, Summaries: store}
	exit := Engine{}.Analyze(proc.CFG, InitialState(&proc.Attrs), tf.Exec)
	return domain.MakeSummary(exit), nil
}

// AnalyzeProgram summarizes every procedure, iterating passes until the
// store stabilizes. Procedures within a pass are independent and run across
// worker goroutines; a caller whose callee has no summary yet reads bottom
// and picks the summary up on the next pass.
func AnalyzeProgram(prog *ir.Program, store SummaryStore, opts Options) {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = models.NewClassifier()
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = defaultMaxPasses
	}

	names := prog.ProcNames()

	for pass := 0; pass < maxPasses; pass++ {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			changed bool
		)
		work := make(chan ir.Procname)

		for w := 0; w < jobs; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for name := range work {
					proc := prog.Proc(name)
					sum, err := AnalyzeProcedure(proc, classifier, store)
					if err != nil {
						logging.Warnf("skipping %s: %v", name, err)
						continue
					}
					prev, ok := store.Read(name, name)
					if ok && prev.Equal(sum.State) {
						continue
					}
					store.Write(name, sum)
					mu.Lock()
					changed = true
					mu.Unlock()
				}
			}()
		}

		for _, name := range names {
			work <- name
		}
		close(work)
		wg.Wait()

		if !changed {
			return
		}
	}
	logging.Debugf("summaries did not stabilize within %d passes", maxPasses)
}
