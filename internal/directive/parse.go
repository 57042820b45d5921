package directive

import (
	"strconv"
	"strings"
)

// Usage lists the console commands.
const Usage = `commands:
  takeoff <altitude>
  hover <duration> [priority]
  move <direction> <duration> [priority]
  yaw <heading> [priority]
  land [priority]
  exit`

// ParseLine parses one console line such as "move forward 2 med".
func ParseLine(line string) (Directive, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Directive{}, invalid("empty command")
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	d := Directive{Command: cmd}

	num := func(name, s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, invalid("%s %q is not a number", name, s)
		}
		return v, nil
	}
	arity := func(lo, hi int) error {
		if len(args) < lo || len(args) > hi {
			return invalid("wrong number of arguments for %s", cmd)
		}
		return nil
	}

	var err error
	switch cmd {
	case CmdTakeoff:
		if err = arity(1, 1); err == nil {
			d.Altitude, err = num("altitude", args[0])
		}
	case CmdHover:
		if err = arity(1, 2); err == nil {
			d.Duration, err = num("duration", args[0])
			if len(args) == 2 {
				d.Priority = args[1]
			}
		}
	case CmdMove:
		if err = arity(2, 3); err == nil {
			d.Direction = args[0]
			d.Duration, err = num("duration", args[1])
			if len(args) == 3 {
				d.Priority = args[2]
			}
		}
	case CmdYaw:
		if err = arity(1, 2); err == nil {
			d.Heading, err = num("heading", args[0])
			if len(args) == 2 {
				d.Priority = args[1]
			}
		}
	case CmdLand:
		if err = arity(0, 1); err == nil && len(args) == 1 {
			d.Priority = args[0]
		}
	case CmdExit:
		err = arity(0, 0)
	default:
		err = invalid("unknown command %q", fields[0])
	}
	if err != nil {
		return Directive{}, err
	}

	if _, err := d.Validate(); err != nil {
		return Directive{}, err
	}
	return d, nil
}
