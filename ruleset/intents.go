package ruleset

import (
	"github.com/nathoo/duelcore/engine/resolve"
	"github.com/nathoo/duelcore/types"
)

// factories resolve the intents the ruleset and its triggers produce. An
// intent whose payload does not decode resolves to nothing and is dropped.
var factories = map[string]resolve.Factory{
	CmdDrawCard:   fromIntent[DrawCard],
	CmdDealDamage: fromIntent[DealDamage],
	CmdTakeCard:   fromIntent[TakeCard],
}

func fromIntent[T any, P interface {
	*T
	types.Command
}](in types.Intent, _ *types.State) types.Command {
	cmd, err := build[T, P](in.Payload)
	if err != nil {
		return nil
	}
	return cmd
}
