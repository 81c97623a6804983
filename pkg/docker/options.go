package docker

type clientOptions struct {
	host string
}

type Option func(*clientOptions)

func WithHost(host string) Option {
	return func(o *clientOptions) {
		o.host = host
	}
}
