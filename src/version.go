package orbserve

const MAJOR_VERSION = 0
const MINOR_VERSION = 1

func Version() string {
	return "orbserve 0.1"
}
