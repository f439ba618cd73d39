package browser

// suggestSelectorScript builds a CSS selector for an element, preferring
// test ids and accessible names over generated class names. When the
// element itself has nothing stable it is addressed by position under the
// nearest ancestor that does.
const suggestSelectorScript = `el => {
	const qaAttrs = ['data-testid', 'data-test-id', 'data-test', 'data-qa'];
	const quote = v => '"' + String(v).replace(/\\/g, '\\\\').replace(/"/g, '\\"') + '"';
	const generatedClass = c => !c || /^[0-9]/.test(c) || /^[a-f0-9]{8,}$/.test(c) || /-sc-[a-z0-9]+-\d+$/.test(c) || c.length >= 40;

	const own = node => {
		const tag = node.tagName.toLowerCase();

		for (const attr of qaAttrs) {
			const val = node.getAttribute(attr);
			if (val) return tag + '[' + attr + '=' + quote(val) + ']';
		}

		if (node.id && /^[a-zA-Z][\w-]*$/.test(node.id)) return '#' + node.id;

		const aria = node.getAttribute('aria-label');
		if (aria && aria.length < 80) return tag + '[aria-label=' + quote(aria) + ']';

		const title = node.getAttribute('title');
		if (title && title.length < 50) return tag + '[title=' + quote(title) + ']';

		if (typeof node.className === 'string') {
			const classes = node.className.split(/\s+/).filter(c => !generatedClass(c)).slice(0, 2);
			if (classes.length > 0) return tag + '.' + classes.join('.');
		}

		return '';
	};

	const self = own(el);
	if (self) return self;

	const path = [];
	let current = el;
	for (let depth = 0; current && current.parentElement && depth < 4; depth++) {
		const index = Array.from(current.parentElement.children).indexOf(current) + 1;
		path.unshift(current.tagName.toLowerCase() + ':nth-child(' + index + ')');

		current = current.parentElement;
		const anchor = own(current);
		if (anchor) return anchor + ' > ' + path.join(' > ');
	}

	return '';
}`
