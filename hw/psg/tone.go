package psg

// tone is a square wave generator, toggling every period samples.
type tone struct {
	count uint16
	out   bool
}

func (t *tone) tick(period uint16) {
	if period == 0 {
		t.count = 0
		t.out = false
		return
	}
	t.count++
	if t.count >= period {
		t.count = 0
		t.out = !t.out
	}
}
