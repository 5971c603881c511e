package types

import "errors"

var (
	ErrMissingHits     = errors.New("report list has no hits")
	ErrMissingJSONDump = errors.New("processed crash has no json_dump")
	ErrNoThreads       = errors.New("json_dump has no threads")
	ErrNoFrames        = errors.New("thread 0 has no frames")
)

// ReportList is the response of the ReportList endpoint
type ReportList struct {
	Hits  []Hit `json:"hits"`
	Total int   `json:"total"`
}

// Hit is a single crash report matching the signature
type Hit struct {
	UUID      string `json:"uuid"`
	Signature string `json:"signature"`
	Date      string `json:"date_processed"`
}

// ProcessedCrash is the response of the ProcessedCrash endpoint
type ProcessedCrash struct {
	UUID     string    `json:"uuid"`
	JSONDump *JSONDump `json:"json_dump"`
}

// JSONDump holds the minidump analysis of a crash
type JSONDump struct {
	CrashingThread *int     `json:"crashing_thread"`
	Threads        []Thread `json:"threads"`
}

// Thread represents one thread of a crashed process
type Thread struct {
	FrameCount int     `json:"frame_count"`
	Frames     []Frame `json:"frames"`
}

// Frame represents a single frame in a stack trace
type Frame struct {
	Frame        int    `json:"frame"`
	Module       string `json:"module,omitempty"`
	Offset       string `json:"offset,omitempty"`
	ModuleOffset string `json:"module_offset,omitempty"`
	Function     string `json:"function,omitempty"`
	Normalized   string `json:"normalized,omitempty"`
}

// Thread0Frames returns the frames of the first thread.
func (c ProcessedCrash) Thread0Frames() ([]Frame, error) {
	if c.JSONDump == nil {
		return nil, ErrMissingJSONDump
	}
	if len(c.JSONDump.Threads) == 0 {
		return nil, ErrNoThreads
	}
	frames := c.JSONDump.Threads[0].Frames
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}
