package checkpointer

import "strconv"

// FilenameEnumerator returns a function generating the consecutive
// filenames filename<start+1>extension, filename<start+2>extension, and
// so on. The filename may include a path.
func FilenameEnumerator(start int, filename, extension string) func() string {
	i := start
	return func() string {
		i++
		return filename + strconv.Itoa(i) + extension
	}
}
