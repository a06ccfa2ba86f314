// Package naming encodes the environment naming conventions that bind an
// image build folder to host pool, session host, workspace and desktop
// names. The fixed positional segment extraction is a convention inherited
// from the image publishing side; ParseBuildFolder validates it explicitly
// rather than failing on a bad index deep in the pipeline.
package naming
