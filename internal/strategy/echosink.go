package strategy

import "context"

// EchoSink is a DataSink that persists nothing. Write acknowledges every
// record; Create acknowledges every request with an identity remap (new
// identifier = old identifier), so dependent entities can still resolve
// their parent references. Used for dry runs.
type EchoSink struct{}

func (EchoSink) Write(_ context.Context, _ string, records []RawRecord) (PersistOutcome, error) {
	return PersistOutcome{Processed: len(records), Persisted: len(records)}, nil
}

func (EchoSink) Create(_ context.Context, _ string, reqs []CreateRequest) ([]CreatedRecord, error) {
	created := make([]CreatedRecord, len(reqs))
	for i, req := range reqs {
		created[i] = CreatedRecord{OldID: req.OldID, NewID: req.OldID}
	}
	return created, nil
}
