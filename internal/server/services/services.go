// Package services contains server-side business logic: the nomination
// workflow, the guardian registry, the signing policy engine and account
// provisioning. Services take the acting account id already resolved by the
// transport layer and never parse credentials themselves.
package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
)

// lookupErr renames a repository NotFound after what was being looked up.
// Any other error is returned unchanged.
func lookupErr(err error, format string, args ...any) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: %s", common.ErrorNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
