package stop

type Options struct{}

func NewOptions() *Options {
	return new(Options)
}
