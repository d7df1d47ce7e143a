package views

// StyleID guards the embed stylesheet so it is injected once per document.
const StyleID = "blog-embed-styles"

// Styles is the stylesheet the embed injects alongside its markup.
const Styles = `
.blog-list{display:grid;gap:1.5rem;grid-template-columns:repeat(auto-fill,minmax(280px,1fr))}
.blog-card{border:1px solid #e5e7eb;border-radius:.75rem;overflow:hidden;background:#fff}
.blog-card-image img{width:100%;height:180px;object-fit:cover;display:block}
.blog-card-body{padding:1rem 1.25rem}
.blog-category{font-size:.75rem;font-weight:600;text-transform:uppercase;letter-spacing:.08em;color:#2563eb}
.blog-label{font-size:.7rem;padding:.1rem .5rem;border-radius:999px;background:#fef3c7;color:#92400e}
.blog-card-title{font-size:1.15rem;margin:.5rem 0}
.blog-card-title a{color:inherit;text-decoration:none}
.blog-card-description{color:#4b5563;margin:0 0 .75rem}
.blog-date{display:block;font-size:.8rem;color:#6b7280}
.blog-read-more{display:inline-block;margin-top:.75rem;font-weight:600;color:#2563eb}
.blog-post{max-width:760px;margin:0 auto}
.blog-hero{width:100%;border-radius:.75rem;margin-bottom:1.5rem}
.blog-post-title{font-size:2.25rem;line-height:1.2;margin:.5rem 0}
.blog-section h2,.blog-conclusion h2,.blog-faqs h2{font-size:1.5rem;margin-top:2rem}
.blog-figure{margin:1.5rem 0}
.blog-figure img{max-width:100%;border-radius:.5rem}
.blog-figure figcaption{font-size:.85rem;color:#6b7280;text-align:center}
.blog-faq{border-bottom:1px solid #e5e7eb;padding:.75rem 0}
.blog-faq summary{cursor:pointer;font-weight:600}
.blog-state{padding:3rem 1rem;text-align:center;color:#4b5563}
.blog-spinner{display:inline-block;width:2rem;height:2rem;border:3px solid #e5e7eb;border-top-color:#2563eb;border-radius:50%;animation:blog-spin 1s linear infinite}
.blog-error{color:#b91c1c}
@keyframes blog-spin{to{transform:rotate(360deg)}}
`
