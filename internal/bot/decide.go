package bot

import "fmt"

// ActionWait is the null decision: observe again next cycle.
const ActionWait = "wait"

// Command is the payload for POST /api/v1/command.
type Command struct {
	Action string `json:"action"`
	TypeID string `json:"type_id,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Decision is the farmhand's chosen move for one cycle.
type Decision struct {
	Action    string
	Command   *Command // nil when Action is "wait"
	Rationale string
}

func wait(reason string) *Decision {
	return &Decision{Action: ActionWait, Rationale: reason}
}

func move(cmd Command, rationale string) *Decision {
	return &Decision{Action: cmd.Action, Command: &cmd, Rationale: rationale}
}

// Decide walks a fixed priority list and returns at most one command.
// Harvesting always comes first: a mature crop earns nothing until it is in
// the basket. Sales wait for a good market unless the run is closing.
// Purchases come last and are skipped when the same purchase failed on the
// previous cycle, so a refusal does not turn into a hammering loop.
func Decide(a *Assessment, mem *CycleMemory) *Decision {
	if a.GameOver {
		return wait("game over, nothing left to do")
	}
	if a.Paused {
		return wait("game is paused")
	}

	if len(a.MatureField) > 0 {
		return move(Command{Action: "harvest", ID: a.MatureField[0]},
			"a crop is ready; harvesting before anything else")
	}

	sellNow := a.GoodMarket || a.Pressure == PressureClosing
	if len(a.Basket) > 0 && sellNow {
		return move(Command{Action: "sell_crop", ID: a.Basket[0]},
			fmt.Sprintf("selling from the basket at %.2fx demand (%s)", a.DemandToday, a.Pressure))
	}
	if len(a.MaturePens) > 0 && sellNow {
		return move(Command{Action: "sell_animal", ID: a.MaturePens[0]},
			fmt.Sprintf("selling a grown animal at %.2fx demand (%s)", a.DemandToday, a.Pressure))
	}

	if len(a.IdleSeeds) > 0 && a.FreePlots > 0 {
		return move(Command{Action: "plant", ID: a.IdleSeeds[0]},
			"an owned seed is idle and a plot is free")
	}
	if len(a.BarnAnimals) > 0 && a.FreePens > 0 {
		return move(Command{Action: "place", ID: a.BarnAnimals[0]},
			"an owned animal is idle and a pen is free")
	}

	if a.Pressure != PressureClosing && a.Cheapest != nil {
		action := "buy_seed"
		if a.Cheapest.Kind == "animal" {
			action = "buy_animal"
		}
		if mem.LastFailed(action) {
			return wait(fmt.Sprintf("skipping %s after last cycle's refusal", action))
		}
		return move(Command{Action: action, TypeID: a.Cheapest.ID},
			fmt.Sprintf("buying %s for $%d to keep the farm busy", a.Cheapest.Name, a.Cheapest.Cost))
	}

	if len(a.Basket) > 0 || len(a.MaturePens) > 0 {
		return wait(fmt.Sprintf("holding stock for a better market (today %.2fx, window best %.2fx)",
			a.DemandToday, a.BestDemand))
	}
	return wait("nothing affordable and nothing growing")
}
