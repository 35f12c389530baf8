package brain

import "errors"

// #region sentinels
// ErrSpec marks an invalid brain specification: empty schemas, duplicate or
// reserved names, unresolved joystick references, or a spec that cannot
// produce learning signals.
var ErrSpec = errors.New("invalid brain spec")

// ErrRange marks an attribute value outside its declared range.
var ErrRange = errors.New("value out of range")

// #endregion sentinels
