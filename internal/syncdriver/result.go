package syncdriver

const (
	outcomeSynced     = "synced"
	outcomeFailed     = "failed"
	outcomeConflicted = "conflicted"
	outcomeSkipped    = "skipped"
	outcomeApplied    = "applied"
)

// Counts tallies what happened to the rows of one table.
//
// Synced rows were acknowledged. Failed rows were rejected or lost in
// transport and will be retried. Conflicted rows changed locally while in
// flight, or lost a merge against a newer local edit. Skipped inbound rows
// named an unknown parent, carried no server id, or were already current.
// Applied inbound rows were inserted or updated.
type Counts struct {
	Synced     int `json:"synced" yaml:"synced"`
	Failed     int `json:"failed" yaml:"failed"`
	Conflicted int `json:"conflicted" yaml:"conflicted"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Applied    int `json:"applied" yaml:"applied"`
}

// Result summarizes one pass.
type Result struct {
	BatchID string            `json:"batchId,omitempty" yaml:"batchId,omitempty"`
	Tables  map[string]Counts `json:"tables" yaml:"tables"`
}

func newResult(batchID string) Result {
	return Result{BatchID: batchID, Tables: make(map[string]Counts)}
}

func (r *Result) add(table, outcome string) {
	counts := r.Tables[table]
	switch outcome {
	case outcomeSynced:
		counts.Synced++
	case outcomeFailed:
		counts.Failed++
	case outcomeConflicted:
		counts.Conflicted++
	case outcomeSkipped:
		counts.Skipped++
	case outcomeApplied:
		counts.Applied++
	}
	r.Tables[table] = counts
}

func (r Result) sum(pick func(Counts) int) int {
	total := 0
	for _, counts := range r.Tables {
		total += pick(counts)
	}
	return total
}

func (r Result) Synced() int     { return r.sum(func(c Counts) int { return c.Synced }) }
func (r Result) Failed() int     { return r.sum(func(c Counts) int { return c.Failed }) }
func (r Result) Conflicted() int { return r.sum(func(c Counts) int { return c.Conflicted }) }
func (r Result) Skipped() int    { return r.sum(func(c Counts) int { return c.Skipped }) }
func (r Result) Applied() int    { return r.sum(func(c Counts) int { return c.Applied }) }
