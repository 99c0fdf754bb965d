package bytecode

// Stats contains statistics about a compiled unit. Useful for auditing
// split decisions and cache contents.
type Stats struct {
	// InstructionCount is the total number of instruction words.
	InstructionCount int

	// ConstantCount is the number of constants in the constant pool.
	ConstantCount int

	// FunctionCount is the number of function constants.
	FunctionCount int

	// ChunkCount is the number of chained chunk constants.
	ChunkCount int

	// LocalCount is the local slot watermark.
	LocalCount int

	// SourceBytes is the size of the original source, when known.
	SourceBytes int
}
