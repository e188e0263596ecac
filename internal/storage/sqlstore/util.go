package sqlstore

import "errors"

func joinErr(kind, cause error) error {
	return errors.Join(kind, cause)
}
