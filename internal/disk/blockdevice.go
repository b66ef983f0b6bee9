package disk

// BlockDevice is the contract internal/volume relies on: fixed-size block
// addressing plus the mount guard. *Device satisfies it against a real
// file; FakeDevice satisfies it against a byte slice, the same pairing
// keks-dumbfs's blkfile tests use (a real os.File-backed target and an
// in-memory fake exercised through one shared interface).
type BlockDevice interface {
	Mount() error
	Unmount()
	Mounted() bool
	Size() uint32
	Read(block uint32, dst []byte) error
	Write(block uint32, src []byte) error
}
