package augment

import "errors"

// ErrAugmentationFailure wraps any error raised while driving the
// registry or resolver from a standardized block; the post-processor
// logs it and terminates rather than propagating it to the persister.
var ErrAugmentationFailure = errors.New("augment: augmentation failed")
