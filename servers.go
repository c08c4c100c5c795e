package furr

// Servers provides the list of server addresses a Client spreads keys over.
type Servers interface {
	List() []string
}

type staticServers struct {
	addrs []string
}

// StaticServers returns a fixed list of "host:port" addresses.
func StaticServers(addrs ...string) Servers {
	return &staticServers{addrs: addrs}
}

func (s *staticServers) List() []string {
	return s.addrs
}
