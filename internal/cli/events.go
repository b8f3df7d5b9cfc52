package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/lifeledger/internal/lifesteal"
	"github.com/roach88/lifeledger/internal/schedule"
	"github.com/roach88/lifeledger/internal/store"
)

// Event verbs accepted by serve, one per input line:
//
//	join <id> [name=<name>] [zone=<zone>] [locality=<loc>] [exempt=true]
//	leave <id>
//	eliminate <id> [by=<winner>]
//	withdraw <id>
//	consume <id>
//	stats <id>
//	flush
//
// Blank lines and lines starting with '#' are ignored.
const (
	verbJoin      = "join"
	verbLeave     = "leave"
	verbEliminate = "eliminate"
	verbWithdraw  = "withdraw"
	verbConsume   = "consume"
	verbStats     = "stats"
	verbFlush     = "flush"
)

// inputEvent is one parsed input line.
type inputEvent struct {
	Verb   string
	ID     string
	Winner string // eliminate only
	Attrs  map[string]string
}

// allowedAttrs lists the key=value attributes each verb accepts.
var allowedAttrs = map[string]map[string]bool{
	verbJoin:      {"name": true, "zone": true, "locality": true, "exempt": true},
	verbLeave:     {},
	verbEliminate: {"by": true},
	verbWithdraw:  {},
	verbConsume:   {},
	verbStats:     {},
	verbFlush:     {},
}

// parseEvent parses one input line. ok is false for blank and comment lines.
func parseEvent(line string) (ev inputEvent, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return inputEvent{}, false, nil
	}

	fields := strings.Fields(line)
	ev.Verb = strings.ToLower(fields[0])
	allowed, known := allowedAttrs[ev.Verb]
	if !known {
		return inputEvent{}, false, fmt.Errorf("unknown event %q", fields[0])
	}

	rest := fields[1:]
	if ev.Verb == verbFlush {
		if len(rest) > 0 {
			return inputEvent{}, false, fmt.Errorf("flush takes no arguments")
		}
		return ev, true, nil
	}

	if len(rest) == 0 || strings.Contains(rest[0], "=") {
		return inputEvent{}, false, fmt.Errorf("%s: participant id is required", ev.Verb)
	}
	if ev.ID, err = store.ParseID(rest[0]); err != nil {
		return inputEvent{}, false, fmt.Errorf("%s: %w", ev.Verb, err)
	}

	ev.Attrs = make(map[string]string, len(rest)-1)
	for _, kv := range rest[1:] {
		key, value, found := strings.Cut(kv, "=")
		if !found || value == "" {
			return inputEvent{}, false, fmt.Errorf("%s: expected key=value, got %q", ev.Verb, kv)
		}
		if !allowed[key] {
			return inputEvent{}, false, fmt.Errorf("%s: unknown attribute %q", ev.Verb, key)
		}
		ev.Attrs[key] = value
	}

	if by, has := ev.Attrs["by"]; has {
		if ev.Winner, err = store.ParseID(by); err != nil {
			return inputEvent{}, false, fmt.Errorf("%s: winner: %w", ev.Verb, err)
		}
	}
	if exempt, has := ev.Attrs["exempt"]; has {
		if _, err := strconv.ParseBool(exempt); err != nil {
			return inputEvent{}, false, fmt.Errorf("%s: exempt: %w", ev.Verb, err)
		}
	}

	return ev, true, nil
}

// participant builds the participant a join event describes. The locality
// defaults to the participant's own id, so unrelated participants are
// spread across workers.
func (ev inputEvent) participant() lifesteal.Participant {
	p := lifesteal.Participant{
		ID:       ev.ID,
		Name:     ev.Attrs["name"],
		Zone:     ev.Attrs["zone"],
		Locality: schedule.Locality(ev.Attrs["locality"]),
	}
	if p.Locality == "" {
		p.Locality = schedule.Locality(ev.ID)
	}
	p.Exempt, _ = strconv.ParseBool(ev.Attrs["exempt"])
	return p
}
