/*
go-fcw is a forward collision warning engine.  It consumes per frame object
detections from a calibrated camera, tracks the detected boxes across frames,
places reliable tracks on the ground plane, filters their motion and warns
about objects whose predicted path enters a danger zone ahead of the vehicle.

A Pipeline runs the stages of one camera stream in order:

	detections -> postprocess.Filter -> tracker.Tracker -> reference.Resolve
	           -> collision.Guard -> Result

The service package hosts many pipelines behind an HTTP and WebSocket API and
example/fcw provides a command line front end.
*/
package fcw
