package badger

// Key namespace:
//
// Data Type       Prefix   Key Format                  Value
// ==========================================================================
// Objects         "o:"     o:<path>                    Object (JSON)
// Children index  "c:"     c:<parent>\x00<name>        child path
// ID sequence     "seq:"   seq:id                      badger sequence
//
// The children index keeps names of one parent contiguous and sorted, so a
// listing is a single prefix scan. The NUL separator sorts before every
// byte a path element may contain.

const (
	prefixObject = "o:"
	prefixChild  = "c:"
	keySequence  = "seq:id"
)

func keyObject(p string) []byte {
	return []byte(prefixObject + p)
}

func keyChild(parent, name string) []byte {
	return []byte(prefixChild + parent + "\x00" + name)
}

func keyChildPrefix(parent string) []byte {
	return []byte(prefixChild + parent + "\x00")
}
