package config

import (
	"errors"
	"fmt"
	"strconv"
)

// Mode selects what the process runs as.
type Mode int

const (
	ModeConnect Mode = iota // default: connect to DefaultHost:DefaultPort
	ModeListen
)

const (
	DefaultHost = "localhost"
	DefaultPort = 2345
)

// Args is the parsed command line.
type Args struct {
	Mode Mode
	Host string
	Port uint16
}

// Addr returns host:port (host empty for listen mode).
func (a Args) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

var errEitherMode = errors.New(`please select either "listen" or "connect"`)

// ParseArgs accepts "listen <port>" or "connect <host> <port>". No arguments
// connects to the default server.
func ParseArgs(args []string) (Args, error) {
	out := Args{Mode: ModeConnect, Host: DefaultHost, Port: DefaultPort}
	listen, connect := false, false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "listen":
			if listen {
				return Args{}, errors.New(`duplicate "listen"`)
			}
			if connect {
				return Args{}, errEitherMode
			}
			if len(args)-i < 2 {
				return Args{}, errors.New("missing port")
			}
			port, err := parsePort(args[i+1])
			if err != nil {
				return Args{}, err
			}
			listen = true
			out = Args{Mode: ModeListen, Port: port}
			i++
		case "connect":
			if connect {
				return Args{}, errors.New(`duplicate "connect"`)
			}
			if listen {
				return Args{}, errEitherMode
			}
			if len(args)-i < 2 {
				return Args{}, errors.New("missing hostname and port")
			}
			if len(args)-i < 3 {
				return Args{}, errors.New("missing port")
			}
			port, err := parsePort(args[i+2])
			if err != nil {
				return Args{}, err
			}
			connect = true
			out = Args{Mode: ModeConnect, Host: args[i+1], Port: port}
			i += 2
		default:
			return Args{}, fmt.Errorf("invalid argument %q", args[i])
		}
	}
	return out, nil
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535, got %q", s)
	}
	return uint16(n), nil
}
