package cms

// AllPostsQuery selects the listing summary of every post.
const AllPostsQuery = `*[_type == "post"]{
  _id,
  title,
  author-> {
    name,
    image
  },
  description,
  mainImage,
  slug
}`

// AllSlugsQuery selects the static path set.
const AllSlugsQuery = `*[_type == "post"]{
  _id,
  slug {
    current
  }
}`

// PostBySlugQuery selects one full post and its approved comments.
// Parameter: $slug.
const PostBySlugQuery = `*[_type == "post" && slug.current == $slug][0]{
  _id,
  _createdAt,
  title,
  author-> {
    name,
    image
  },
  'comments': *[
    _type == "comment" &&
    post._ref == ^._id &&
    approved == true
  ],
  description,
  mainImage,
  slug,
  body
}`
