package dashboard

// MultiObserver fans updates out to several observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver, skipping nil entries.
func NewMultiObserver(obs ...Observer) *MultiObserver {
	m := &MultiObserver{}
	for _, o := range obs {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
	return m
}

// Observe sends u to every observer in order.
func (m *MultiObserver) Observe(u Update) {
	for _, o := range m.observers {
		o.Observe(u)
	}
}

// Add appends o. It must not be called once the session is running.
func (m *MultiObserver) Add(o Observer) {
	if o != nil {
		m.observers = append(m.observers, o)
	}
}
