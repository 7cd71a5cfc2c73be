/*
Package atomicfile writes files so that the destination path either keeps
its old content or gets the complete new content.

Data is written to a temporary file in the same directory. Close() syncs it
and renames it over the destination. If any Write() or Close() fails, or
Cancel() is called first, the temporary file is removed and the destination
is left alone.

	func writeBackup(path string, r io.Reader) error {
		f, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// no-op after successful Close()
		defer f.Cancel()

		if _, err = io.Copy(f, r); err != nil {
			return err
		}
		return f.Close()
	}

To learn more see https://presstige.io/p/atomicfile-22143bf788b542fda2262ca7aee57ae4
*/
package atomicfile
