package generic

// Void is the empty value, for sets and results that carry no data.
type Void = struct{}

func NewVoid() Void {
	return Void{}
}
