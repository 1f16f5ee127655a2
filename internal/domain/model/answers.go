package model

// Answers maps step name to the value a member gave for it. The map is never
// stored anywhere: it is rebuilt from channel history on every invocation.
type Answers map[string]string

func (a Answers) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
