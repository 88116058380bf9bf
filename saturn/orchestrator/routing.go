package orchestrator

// nodeName identifies a node in the turn graph.
type nodeName string

const (
	nodePlan     nodeName = "plan"
	nodeExecute  nodeName = "execute_tool"
	nodeApproval nodeName = "human_approval"
	nodeEnd      nodeName = "end"
)

// routeFromPlan decides where a turn goes after planning. A freshly staged
// write ends the turn so the approval prompt reaches the user; only a write
// that was already pending when the turn began reaches the approval node.
func routeFromPlan(state *State, pendingAtEntry bool) nodeName {
	if state.PlannedTool != nil {
		return nodeExecute
	}
	if state.NextAction != nil && pendingAtEntry {
		return nodeApproval
	}
	return nodeEnd
}

// routeFromApproval runs the staged write on approval, otherwise ends the
// turn (denials and unrecognized replies both terminate here).
func routeFromApproval(state *State) nodeName {
	if state.PlannedTool != nil {
		return nodeExecute
	}
	return nodeEnd
}

// routeFromExecute loops reads back to the planner so it can answer from the
// fresh observation; writes terminate the turn.
func routeFromExecute(state *State) nodeName {
	if state.LastToolMode == "read" {
		return nodePlan
	}
	return nodeEnd
}
