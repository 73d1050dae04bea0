package activate

// Request represents a slot activation request
type Request struct {
	Slot string
}
