package lifesteal

import (
	"github.com/roach88/lifeledger/internal/schedule"
	"github.com/roach88/lifeledger/internal/transfer"
)

// Participant is a connected identity as the host sees it.
type Participant struct {
	ID       string
	Name     string
	Zone     string
	Locality schedule.Locality

	// Exempt participants never lose resource to eliminations.
	Exempt bool
}

// DisplayName returns Name, or ID when Name is empty.
func (p Participant) DisplayName() string {
	if p.Name == "" {
		return p.ID
	}
	return p.Name
}

func (p Participant) transferParty() transfer.Participant {
	return transfer.Participant{ID: p.ID, Name: p.DisplayName(), Locality: p.Locality}
}

//go:generate mockgen -destination=mock_host_test.go -package=lifesteal . Host

// Host performs side effects in the embedding application.
type Host interface {
	// Broadcast sends a message to everyone.
	Broadcast(message string)
	// Dispatch runs a console command.
	Dispatch(command string)
	// Notify sends a message to one participant.
	Notify(p Participant, message string)
	// SetMaxHealth applies a participant's resource level as maximum health,
	// in half-units.
	SetMaxHealth(p Participant, halfUnits int)
}
