package wizard

// Busy is the global busy indicator. Every Show must be paired with a Hide.
type Busy interface {
	Show()
	Hide()
}

type nopBusy struct{}

func (nopBusy) Show() {}
func (nopBusy) Hide() {}

func busyOrNop(b Busy) Busy {
	if b == nil {
		return nopBusy{}
	}
	return b
}
