package status

type Options struct{}

func NewOptions() *Options {
	return new(Options)
}
