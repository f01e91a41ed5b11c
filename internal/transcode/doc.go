// Package transcode is the client port for the external long-running video
// transcoding service. Submissions are synchronous acknowledgements only;
// results arrive asynchronously as JobEvents handled by the callback bridge.
package transcode
