package drive

import (
	"context"

	"go.uber.org/zap"
)

// DeleteTree removes a folder and everything underneath it. Deletion is
// strictly children-before-parent: the remote refuses non-empty folder
// deletes in some configurations, and a partial failure must leave a
// re-enumerable tree rather than a parent with dangling grandchildren.
// An absent path is a no-op.
func (c *Client) DeleteTree(ctx context.Context, path string) error {
	children, err := c.ListChildren(ctx, path)
	if err != nil {
		return err
	}

	for _, child := range children {
		if child.IsFolder() {
			if err := c.DeleteTree(ctx, path+"/"+child.Name); err != nil {
				return err
			}
			continue
		}
		if err := c.Delete(ctx, child.ID); err != nil {
			return err
		}
	}

	folder, err := c.GetItem(ctx, path)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}

	c.logger.Debug("deleting folder", zap.String("path", path), zap.String("item_id", folder.ID))
	return c.Delete(ctx, folder.ID)
}
