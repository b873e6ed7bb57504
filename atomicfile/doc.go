/*
Package atomicfile replaces a file in full without ever leaving it half-written.

Data goes to a temporary file in the destination directory. Close() syncs it
and renames it over the destination. If any Write() fails, or the file is
abandoned with RemoveIfNotClosed(), the temporary file is deleted and the
destination is left untouched.

The name of the temporary file is controlled by a pattern, as in os.CreateTemp,
so that several writers don't share one fixed temp name:

	func save(path string, data []byte) error {
		w, err := atomicfile.New(path, ".flatkv-*")
		if err != nil {
			return err
		}
		// calling Close() twice is a no-op
		defer w.RemoveIfNotClosed()

		_, err = w.Write(data)
		if err != nil {
			return err
		}
		return w.Close()
	}

WriteFile does the above in one call.
*/
package atomicfile
