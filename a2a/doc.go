// Package a2a lets a remote agent reachable through the Agent-to-Agent (A2A)
// protocol take part in compositions like any local leaf agent.
//
// NewClientAgent resolves the server's agent card, takes the agent's name and
// description from it and binds the declared input names. Every call sends
// one user message whose text parts are the bound argument values, in order.
// The answer is the text of the returned message, or of the task's artifacts
// when the server replies with a task.
//
//	writer, err := a2a.NewClientAgent(ctx, "http://localhost:8080", func(o *a2a.ClientAgentOptions) {
//		o.InputNames = []string{"topic"}
//		o.OutputName = "story"
//	})
package a2a
