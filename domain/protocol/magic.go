package protocol

// Magic is the constant first header byte identifying a relay frame.
const Magic byte = 0x58

// Version is the frame format version this codec writes. Decode does not
// enforce it — see Frame.UnmarshalBinary.
const Version byte = 0x01
