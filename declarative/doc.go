// Package declarative builds agent compositions from YAML workflow files.
//
// A workflow declares named agents; composite agents reference their
// sub-agents by name:
//
//	name: story
//	entry: writer
//	agents:
//	  - name: creative
//	    type: model
//	    parameters: [topic]
//	    prompt: "Write a short story about {{topic}}."
//	    output: story
//	  - name: editor
//	    type: model
//	    parameters: [story, style]
//	    prompt: "Rewrite this story in a {{style}} style: {{story}}"
//	    output: story
//	  - name: writer
//	    type: sequence
//	    subagents: [creative, editor]
//	    output: story
//
// Loop exit conditions and conditional branch guards are small boolean
// expressions over blackboard state, see ParseCondition.
package declarative
