// Package prompt renders prompt templates against blackboard state.
package prompt
