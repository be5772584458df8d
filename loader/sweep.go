package loader

import "context"

// stabilize re-runs code discovery until the discovered-function count
// stops increasing, bounded by maxSweeps. Mixed ARM/Thumb binaries need
// several passes before function boundaries settle; injecting symbols
// earlier misaligns them.
func (l *Loader) stabilize(ctx context.Context) error {
	count := -1
	i := 0
	for ; i < maxSweeps; i++ {
		if err := l.host.UpdateAndWait(ctx); err != nil {
			return err
		}
		l.host.AddAnalysisOption("linearsweep")
		if err := l.host.UpdateAndWait(ctx); err != nil {
			return err
		}
		cur := len(l.host.Functions())
		if cur == count {
			l.log.Debug("code discovery stable", "pass", i, "functions", cur)
			return nil
		}
		count = cur
	}
	l.log.Info("code discovery pass limit reached, functions may remain undiscovered", "passes", i)
	return nil
}
