package seed

// File is the root structure of a seed file:
//
//	books:
//	  - isbn: "9780262033848"
//	    title: Introduction to Algorithms
//	    author: Cormen
//	    thumbnail: https://covers.example/algo.jpg
//	    stock: 2
type File struct {
	Books []Book `yaml:"books"`
}

// Book is one seed entry. A missing stock means one copy.
type Book struct {
	ISBN      string `yaml:"isbn"`
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	Thumbnail string `yaml:"thumbnail"`
	Stock     *int   `yaml:"stock"`
}
