// Package state holds the data shared by the HTTP intercept server and the
// control plane: the transcript and the record/replay mode.
//
// A single mutex guards both. Every method is one short critical section;
// callers must do their network I/O and logging before or after, never while
// a State method is running on their behalf.
//
// # Usage
//
//	st := state.New(storage.NewMemoryStorage())
//
//	if st.IsRecord() {
//	    // forward upstream, then
//	    st.Append(ctx, record)
//	} else {
//	    record, err := st.BestMatch(ctx, ngram.New(body))
//	}
//
//	newMode := st.Toggle()
package state
