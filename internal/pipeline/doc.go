// Package pipeline runs a report-generation run as a sequence of steps.
//
// A run collects host information, optionally renders every benchmark scene,
// compares the scene outputs with their references and finally turns the
// external text report into rows. Each stage is a Step that receives the
// report and appends to it.
//
// Design decision: We use a pipeline of steps instead of direct function
// calls because:
// 1. The render pass can be left out without touching the other stages
// 2. Error handling and logging are the same for every stage
// 3. Cancellation (Ctrl-C) is checked between stages
//
// Scene comparisons can run concurrently through BatchComparer, which keeps
// output in scene order.
package pipeline
