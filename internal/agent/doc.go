// Package agent runs the server side of a chat turn.
//
// # Overview
//
// A Runner takes the conversation a client posted, streams the model's reply
// and executes the tools the model asks for, writing every step as a
// stream.Event:
//
//	text_delta / thinking_delta  while the model is generating
//	tool_use_start               once per requested tool, in request order
//	tool_use_end                 once per tool, in the same order, after
//	                             all tools of the round have finished
//	error                        when the model call fails
//	done                         when the model stops asking for tools
//
// Tools of one round are dispatched concurrently through
// packs.Dispatcher.ExecuteAll; their results are fed back to the model and
// the loop repeats, up to MaxTurns rounds.
//
// # Models
//
// Model abstracts the language model. AnthropicModel implements it with the
// Anthropic Messages streaming API. Tests use a scripted fake.
package agent
