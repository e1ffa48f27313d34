package wireproto

import "fmt"

// ParseError is the hard, non-recoverable grammar error surfaced by
// the incremental driver (spec §4.7, §7). raw is a lossy UTF-8
// rendering of the buffer at the point parsing gave up; it is
// truncated by the driver before logging, but kept whole here so a
// caller can inspect it.
type ParseError struct {
	Detail string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("wireproto: parse error: %s", e.Detail)
}

// ParamMissing reports a keyed parameter a command requires but that
// was never supplied.
type ParamMissing struct {
	Command string
	Key     string
}

func (e *ParamMissing) Error() string {
	return fmt.Sprintf("wireproto: command %q missing parameter %q", e.Command, e.Key)
}

// ParamTrailingBytes reports a value decoder that left unconsumed
// bytes behind where the grammar requires the entire value be
// consumed (spec §4.4: "values that must consume their entire input
// report Error on trailing bytes").
type ParamTrailingBytes struct {
	Command string
	Key     string
}

func (e *ParamTrailingBytes) Error() string {
	return fmt.Sprintf("wireproto: command %q parameter %q has trailing bytes", e.Command, e.Key)
}

// ParamInvalid reports a keyed parameter whose value could not be
// decoded into the field type the command expects.
type ParamInvalid struct {
	Command string
	Key     string
	Reason  string
}

func (e *ParamInvalid) Error() string {
	return fmt.Sprintf("wireproto: command %q parameter %q invalid: %s", e.Command, e.Key, e.Reason)
}
