package chooser

import "errors"

func checkTTY() error {
	return errors.New("the builtin chooser needs a Unix terminal")
}

func checkTermWidth() error {
	return nil
}
