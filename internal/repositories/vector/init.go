package vector

// GetRepository returns the vector store adapter. Qdrant is the only backend.
func GetRepository() Database {
	return initQdrantInstance()
}
