// Package vision is a small frame processing runtime whose pipelines expose
// their parameters to the tuner.
//
// A Manager owns the active pipeline and implements tuner.Source: every
// successful Load replaces the pipeline instance and fires the change event
// once. A Processor pulls frames from a FrameSource, runs them through the
// active pipeline and hands the results to a sink, while the tuner edits the
// very same pipeline fields. A Loader reloads the pipeline from a YAML
// definition file whenever the file changes on disk.
package vision
